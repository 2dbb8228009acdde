// medqc audits clinical documents against a closed catalog of compliance
// rules using a local inference backend. Every catalog rule receives exactly
// one verdict per audit, whatever the backend does.
//
// Usage:
//
//	# Audit one document and print the JSON report
//	medqc audit --document case.txt
//
//	# CSV report with deterministic pre-checks merged in
//	medqc audit --document case.txt --precheck checks.json --format csv --output report.csv
//
//	# Show which structured-output mode the backend supports
//	medqc probe
//
//	# Validate the rule catalog, re-checking on every change
//	medqc catalog lint --watch
package main

import "os"

func main() {
	os.Exit(Execute())
}
