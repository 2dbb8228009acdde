/*
Package coverage guarantees that every rule id sent to the backend ends with
exactly one verdict, whatever the backend returns.

Each chunk runs a small state machine:

	INITIAL ──sufficient──▶ DONE
	   │
	   └─weak, budget token─▶ ESCALATING ──▶ DONE

A response is sufficient when the ids it confirms (assessed, or reported as
violated) reach Config.MinCoverageFraction of the requested ids. A weak
response escalates at most once: the chunk is halved with a smaller output
budget and both halves are reissued. Escalations are drawn from a
RetryBudget shared by every chunk of one audit.

After DONE, ids without a confirmation become FAIL verdicts carrying
NotConfirmedEvidence, so silence from the backend can never turn into a PASS.
*/
package coverage
