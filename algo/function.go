package algo

import "fmt"

// Function is the operation class the host tool announces when it starts a
// session. It is informational only.
type Function uint32

// Function codes as passed to Init and UnInit.
const (
	FuncErase   Function = 1
	FuncProgram Function = 2
	FuncVerify  Function = 3
)

func (f Function) String() string {
	switch f {
	case FuncErase:
		return "erase"
	case FuncProgram:
		return "program"
	case FuncVerify:
		return "verify"
	default:
		return fmt.Sprintf("function(%d)", uint32(f))
	}
}
