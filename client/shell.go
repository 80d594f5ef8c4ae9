package client

import (
	"context"
	"errors"

	"github.com/moffa90/go-mcumgr/connection"
	"github.com/moffa90/go-mcumgr/protocol"
)

// ShellExecute runs a shell command on the device and returns its output and
// exit code. A non-zero exit code is not an error.
func (c *Client) ShellExecute(ctx context.Context, argv []string) (string, int32, error) {
	if len(argv) == 0 {
		return "", 0, errors.New("shell command cannot be empty")
	}

	resp, err := connection.Execute(ctx, c.conn, protocol.ShellExecute, &protocol.ShellExecuteRequest{Argv: argv})
	if err != nil {
		return "", 0, err
	}
	return resp.Output, resp.Ret, nil
}
