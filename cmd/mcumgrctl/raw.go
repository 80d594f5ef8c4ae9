package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-mcumgr/client"
	"github.com/moffa90/go-mcumgr/protocol"
)

func newRawCmd() *cobra.Command {
	var (
		group   uint16
		id      uint8
		op      string
		payload string
	)
	cmd := &cobra.Command{
		Use:   "raw",
		Short: "Send an arbitrary SMP request",
		Long: `Send a request for any group and command ID. The payload is given as a
JSON object and sent as CBOR; the response is printed as JSON or YAML.

Example:
  mcumgrctl raw --group 0 --id 0 --op read --payload '{"d":"hello"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var o protocol.Op
			switch strings.ToLower(op) {
			case "read":
				o = protocol.OpRead
			case "write":
				o = protocol.OpWrite
			default:
				return fmt.Errorf("op must be read or write, got %q", op)
			}

			req, err := parseRawPayload(payload)
			if err != nil {
				return err
			}

			ident := protocol.Identity{Group: protocol.Group(group), ID: id, Op: o}
			if known, ok := protocol.Lookup(ident.Group, id, o); ok {
				ident = known
			}

			return withClient(func(c *client.Client) error {
				rsp, err := c.Raw(cmd.Context(), ident, req)
				if err != nil {
					return err
				}
				return render(printable(rsp), func() error {
					return renderTo(cmd.OutOrStdout(), "json", printable(rsp), nil)
				})
			})
		},
	}

	f := cmd.Flags()
	f.Uint16Var(&group, "group", 0, "management group ID")
	f.Uint8Var(&id, "id", 0, "command ID")
	f.StringVar(&op, "op", "read", "read or write")
	f.StringVar(&payload, "payload", "{}", "request payload as a JSON object")
	return cmd
}

// parseRawPayload decodes a JSON object, keeping integers as integers so
// they are not sent as CBOR floats.
func parseRawPayload(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return fixNumbers(m).(map[string]any), nil
}

func fixNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = fixNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = fixNumbers(e)
		}
		return t
	default:
		return v
	}
}

// printable converts decoded CBOR values into values JSON and YAML encoders
// accept: byte strings become hex and non-string map keys become strings.
func printable(v any) any {
	switch t := v.(type) {
	case []byte:
		return fmt.Sprintf("%x", t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = printable(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = printable(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = printable(e)
		}
		return out
	default:
		return v
	}
}
