package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/corey/intake/internal/adapters/socket"
	"github.com/corey/intake/internal/domain/inbound"
)

var (
	receiveJSON bool
	receiveFail bool
)

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Take the next file from the daemon",
	Long: "Prints the path of the next eligible file and claims it. " +
		"Exits with status 2 when nothing is available. With --fail the file is " +
		"handed straight back, which is useful to peek at the head of the queue.",
	Args: cobra.NoArgs,
	RunE: runReceive,
}

var failRelative string

var failCmd = &cobra.Command{
	Use:   "fail <path>",
	Short: "Return a received file so it is offered again",
	Args:  cobra.ExactArgs(1),
	RunE:  runFail,
}

var ackCmd = &cobra.Command{
	Use:   "ack <path>",
	Short: "Release the claim on a processed file",
	Args:  cobra.ExactArgs(1),
	RunE:  runAck,
}

func init() {
	receiveCmd.Flags().BoolVar(&receiveJSON, "json", false, "print the whole message as JSON")
	receiveCmd.Flags().BoolVar(&receiveFail, "fail", false, "hand the file back immediately")
	failCmd.Flags().StringVar(&failRelative, "relative", "", "path relative to the watched root, as reported by receive")
}

func runReceive(cmd *cobra.Command, args []string) error {
	client, err := daemonClient()
	if err != nil {
		return err
	}
	msg, err := client.Receive()
	if err != nil {
		return err
	}
	if !msg.Found {
		os.Exit(2)
	}
	if receiveJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(msg); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), msg.Payload)
	}
	if receiveFail {
		return client.Fail(socket.FailParams{
			ID:           msg.ID,
			Payload:      msg.Payload,
			RelativePath: msg.Headers[inbound.HeaderRelativePath],
		})
	}
	return nil
}

func runFail(cmd *cobra.Command, args []string) error {
	params, err := failParams(args[0], failRelative)
	if err != nil {
		return err
	}
	client, err := daemonClient()
	if err != nil {
		return err
	}
	return client.Fail(params)
}

func runAck(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve %s: %w", args[0], err)
	}
	client, err := daemonClient()
	if err != nil {
		return err
	}
	return client.Ack(path)
}

// failParams builds the fail request for a path given on the command line.
// The daemon runs in another working directory, so relative paths are
// resolved here.
func failParams(path, relative string) (socket.FailParams, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return socket.FailParams{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	return socket.FailParams{Payload: abs, RelativePath: relative}, nil
}
