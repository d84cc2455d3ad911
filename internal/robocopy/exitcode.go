package robocopy

import "fmt"

// Verdict is the classification of a completed robocopy run, derived purely
// from its exit code.
type Verdict struct {
	Code    int
	Success bool
	Message string
}

// robocopy exit codes below 8 are bit flags describing what the run did, not
// failures: 1 = files copied, 2 = extras at destination, 4 = mismatches.
var successMessages = map[int]string{
	0: "nothing copied",
	1: "files copied",
	2: "extra items detected",
	3: "files copied, extra items detected",
	4: "mismatched items detected",
	5: "files copied, some items failed",
	6: "extra and mismatched items detected",
	7: "files copied with some errors",
}

// Classify maps an exit code to a Verdict. Codes 0-7 report success with a
// differentiated message, 8 means some items could not be copied, anything
// else (including abnormal termination codes) is a serious error.
func Classify(code int) Verdict {
	switch {
	case code >= 0 && code <= 7:
		msg, ok := successMessages[code]
		if !ok {
			msg = fmt.Sprintf("completed with code %d", code)
		}
		return Verdict{Code: code, Success: true, Message: msg}
	case code == 8:
		return Verdict{Code: code, Success: false, Message: "some items could not be copied"}
	default:
		return Verdict{Code: code, Success: false, Message: fmt.Sprintf("serious error (code %d)", code)}
	}
}
