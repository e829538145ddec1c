package main

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/pretty"
	"github.com/urfave/cli/v2"
)

const noData = "no data"

func printJSON(c *cli.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(pretty.Pretty(data))
	return err
}

// printList prints items as a JSON array. An empty result prints [] and
// reports "no data" on stderr so scripts can tell it from a failure.
func printList[T any](c *cli.Context, items []T) error {
	if len(items) == 0 {
		fmt.Fprintln(c.App.ErrWriter, noData)
		items = []T{}
	}
	return printJSON(c, items)
}
