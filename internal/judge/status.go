package judge

// Status is the closed set of result states the judge reports per run.
// Ids 1 and 2 are the only non-terminal states; everything from Accepted up is
// final and will not change on a later poll.
type Status int

const (
	StatusInQueue          Status = 1
	StatusProcessing       Status = 2
	StatusAccepted         Status = 3
	StatusWrongAnswer      Status = 4
	StatusTimeLimit        Status = 5
	StatusCompilationError Status = 6
	StatusRuntimeSIGSEGV   Status = 7
	StatusRuntimeSIGXFSZ   Status = 8
	StatusRuntimeSIGFPE    Status = 9
	StatusRuntimeSIGABRT   Status = 10
	StatusRuntimeNZEC      Status = 11
	StatusRuntimeOther     Status = 12
	StatusInternalError    Status = 13
	StatusExecFormatError  Status = 14
)

func (s Status) Terminal() bool {
	return s != StatusInQueue && s != StatusProcessing
}

func (s Status) Description() string {
	switch s {
	case StatusInQueue:
		return "In Queue"
	case StatusProcessing:
		return "Processing"
	case StatusAccepted:
		return "Accepted"
	case StatusWrongAnswer:
		return "Wrong Answer"
	case StatusTimeLimit:
		return "Time Limit Exceeded"
	case StatusCompilationError:
		return "Compilation Error"
	case StatusRuntimeSIGSEGV:
		return "Runtime Error (SIGSEGV)"
	case StatusRuntimeSIGXFSZ:
		return "Runtime Error (SIGXFSZ)"
	case StatusRuntimeSIGFPE:
		return "Runtime Error (SIGFPE)"
	case StatusRuntimeSIGABRT:
		return "Runtime Error (SIGABRT)"
	case StatusRuntimeNZEC:
		return "Runtime Error (NZEC)"
	case StatusRuntimeOther:
		return "Runtime Error"
	case StatusInternalError:
		return "Internal Error"
	case StatusExecFormatError:
		return "Exec Format Error"
	default:
		return "Unknown"
	}
}
