package main

import (
	"encoding/json"
	"fmt"

	"marketplace/pkg/pagination"

	"github.com/spf13/cobra"
)

var cursorCmd = &cobra.Command{
	Use:   "cursor",
	Short: "Inspect pagination cursors",
}

var cursorDecodeCmd = &cobra.Command{
	Use:   "decode [cursor]",
	Short: "Decode an opaque next_cursor value into its sort key and id",
	Args:  cobra.ExactArgs(1),
	RunE:  runCursorDecode,
}

type decodedCursor struct {
	Sort  string      `json:"sort,omitempty"`
	Time  interface{} `json:"time,omitempty"`
	Value interface{} `json:"value,omitempty"`
	ID    string      `json:"id"`
}

func runCursorDecode(cmd *cobra.Command, args []string) error {
	c, err := pagination.Decode(args[0])
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("cursor is empty")
	}

	out := decodedCursor{Sort: c.Sort, ID: c.ID.String()}
	if c.Time != nil {
		out.Time = c.Time
	}
	if c.Value != nil {
		out.Value = *c.Value
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
