package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCategoryCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Category management",
		Example: "  pos category add Drinks\n" +
			"  pos category ls\n" +
			"  pos category rm drinks",
	}
	cmd.AddCommand(
		newCategoryAddCommand(deps),
		newCategoryListCommand(deps),
		newCategoryRemoveCommand(deps),
	)
	return cmd
}

func newCategoryAddCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Register a category (names are trimmed and lower-cased)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("category add requires exactly one name")
			}
			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				name, err := svc.categories.Add(ctx, args[0])
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{"name": name})
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err = fmt.Fprintf(deps.out, "category added: %s\n", name)
				return err
			})
		},
	}
}

func newCategoryListCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List categories alphabetically",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("category ls does not accept positional arguments")
			}
			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				categories, err := svc.categories.List(ctx)
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, categories)
				}
				if deps.globals.Quiet {
					return nil
				}
				for _, category := range categories {
					if _, err := fmt.Fprintln(deps.out, category.Name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newCategoryRemoveCommand(deps commandDeps) *cobra.Command {
	var unused bool

	cmd := &cobra.Command{
		Use:   "rm [name]",
		Short: "Remove a category no product references, or every such category with --unused",
		RunE: func(cmd *cobra.Command, args []string) error {
			if unused {
				if len(args) != 0 {
					return usageErrorf("category rm --unused does not accept a name")
				}
				return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
					if err := svc.categories.RemoveUnused(ctx); err != nil {
						return err
					}
					return printRemoved(deps, "categories removed", "unused")
				})
			}

			if len(args) != 1 {
				return usageErrorf("category rm requires exactly one name")
			}
			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				if err := svc.categories.Remove(ctx, args[0]); err != nil {
					return err
				}
				return printRemoved(deps, "category removed", args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&unused, "unused", false, "Remove every category no product references")
	return cmd
}
