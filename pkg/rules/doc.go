// Package rules loads and serves the closed catalog of compliance rules.
//
// A Catalog is built once at startup from YAML files and never changes while
// audits run. Every verdict entering an audit passes through Catalog.Admit,
// which rejects ids outside the catalog and truncates evidence to the rule's
// limit.
//
// # File Format
//
// A catalog file holds a list of rules, a single rule, or a document with a
// shared defaults block:
//
//	defaults:
//	  severity: major
//	  order_domain: ["Order 203n"]
//	  where_domain: ["diagnosis", "plan"]
//	  evidence_max_chars: 90
//	rules:
//	  - id: STAC-01
//	    title: Diagnosis is coded
//	    hint: Is an ICD-10 code present for the main diagnosis?
//
// Directories are read in sorted file-name order.
package rules
