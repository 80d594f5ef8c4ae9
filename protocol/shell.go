package protocol

// Shell management group (group 9) payloads.

// ShellExecuteRequest runs a shell command line, split into arguments.
type ShellExecuteRequest struct {
	Argv []string `cbor:"argv"`
}

// ShellExecuteResponse carries the command output and its exit code.
type ShellExecuteResponse struct {
	Output string `cbor:"o"`
	Ret    int32  `cbor:"ret"`
}
