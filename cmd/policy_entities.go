package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/abax-solver/abax/internal/core"
	"github.com/abax-solver/abax/internal/store"
)

var entitiesKind string

var policyEntitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List the entities of a policy with their attributes",
	Example: `  abax policy entities --policy policy.yaml
  abax policy entities --policy policy.yaml --kind resource`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pol, err := loadPolicy()
		if err != nil {
			return err
		}

		kind := core.EntityKind(entitiesKind)
		if !kind.IsValid() {
			return fmt.Errorf("unknown entity kind %q (want subject or resource)", entitiesKind)
		}

		printEntities(pol.Store, kind)
		return nil
	},
}

func printEntities(st *store.Store, kind core.EntityKind) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	attrs := st.Attrs(kind)
	header := table.Row{"ID"}
	for _, a := range attrs {
		header = append(header, a)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(header)

	for _, id := range st.IDs(kind) {
		row := table.Row{bold(id)}
		for _, a := range attrs {
			v, err := st.Get(kind, id, a)
			switch {
			case err != nil:
				row = append(row, faint("?"))
			case v.Null:
				row = append(row, faint("null"))
			default:
				row = append(row, truncate(v.String(), 48))
			}
		}
		t.AppendRow(row)
	}

	s := table.StyleRounded
	s.Format.Header = text.FormatDefault
	t.SetStyle(s)
	t.Render()
}

func init() {
	policyEntitiesCmd.Flags().StringVar(&entitiesKind, "kind", "subject", "Entity kind to list (subject, resource)")
	policyCmd.AddCommand(policyEntitiesCmd)
}
