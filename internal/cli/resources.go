package cli

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/jamfctl/pkg/endpoints"
	"github.com/Sternrassler/jamfctl/pkg/ids"
	"github.com/spf13/cobra"
)

var groupShort = map[string]string{
	"patch":      "Patch management",
	"group":      "Computer, mobile device and user groups",
	"adv-search": "Advanced searches",
}

// newResourceCommands builds one command per catalog resource, nesting
// resources whose path has a parent under a shared group command.
func newResourceCommands(rt *runtimeState) []*cobra.Command {
	var top []*cobra.Command
	groups := map[string]*cobra.Command{}

	for _, r := range endpoints.Resources() {
		cmd := &cobra.Command{
			Use:   r.Name(),
			Short: r.Short,
		}
		for _, a := range r.Actions {
			cmd.AddCommand(newActionCommand(rt, r, a))
		}

		if len(r.Path) == 1 {
			top = append(top, cmd)
			continue
		}
		parent, ok := groups[r.Path[0]]
		if !ok {
			parent = &cobra.Command{Use: r.Path[0], Short: groupShort[r.Path[0]]}
			groups[r.Path[0]] = parent
			top = append(top, parent)
		}
		parent.AddCommand(cmd)
	}
	return top
}

func newActionCommand(rt *runtimeState, r endpoints.Resource, a endpoints.Action) *cobra.Command {
	cmd := &cobra.Command{
		Use:   a.Name,
		Short: a.Short,
	}

	switch a.Kind {
	case endpoints.ArgNone:
		cmd.Args = cobra.NoArgs
		cmd.RunE = func(cmd *cobra.Command, _ []string) error {
			return rt.run(cmd, a, endpoints.Input{})
		}

	case endpoints.ArgIDs:
		var rangeSpec string
		cmd.Use = a.Name + " [ID[,ID...]...]"
		cmd.Example = fmt.Sprintf("  jamfctl %s %s 1,2,3\n  jamfctl %s %s --range 100,150",
			strings.Join(r.Path, " "), a.Name, strings.Join(r.Path, " "), a.Name)
		cmd.Flags().StringVarP(&rangeSpec, "range", "r", "", "Inclusive id range START,END (ignored when ids are given)")
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			list, err := expandIDs(args, rangeSpec)
			if err != nil {
				return err
			}
			return rt.run(cmd, a, endpoints.Input{IDs: ids.Strings(list)})
		}

	case endpoints.ArgSearch:
		cmd.Use = a.Name + " QUERY"
		cmd.Args = cobra.ExactArgs(1)
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, a, endpoints.Input{Query: args[0]})
		}

	case endpoints.ArgIDVersion:
		cmd.Use = a.Name + " ID VERSION"
		cmd.Args = cobra.ExactArgs(2)
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			list, err := ids.ParseList(args[:1])
			if err != nil {
				return err
			}
			if len(list) != 1 {
				return fmt.Errorf("%w: exactly one id expected", ids.ErrInvalidArgument)
			}
			return rt.run(cmd, a, endpoints.Input{IDs: ids.Strings(list), Version: args[1]})
		}
	}

	return cmd
}

// expandIDs turns positional ids or a START,END range into an id list.
func expandIDs(args []string, rangeSpec string) ([]uint32, error) {
	explicit, err := ids.ParseList(args)
	if err != nil {
		return nil, err
	}
	var bounds []uint32
	if len(explicit) == 0 && rangeSpec != "" {
		bounds, err = ids.ParseList([]string{rangeSpec})
		if err != nil {
			return nil, err
		}
	}
	return ids.Expand(explicit, bounds)
}
