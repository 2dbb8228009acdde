// Package document prepares the document text sent with every chunk.
//
// A Provider turns the full extracted text into the context string the
// backend sees. Two strategies exist:
//
//   - "focus" (FocusCondenser): a head window, windows around clinical
//     section headings, and a tail window, bounded to the input budget
//   - "full" (Full): the text as is
//
// The focus budget is
//
//	max(min_input_tokens, context_window - output_budget - system_budget) * chars_per_token
//
// characters, estimated with Estimator.
package document
