package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/SigitArif/POS/internal/app"
	"github.com/SigitArif/POS/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newProductCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Product catalog management",
		Example: "  pos product add --name Coffee --price 4.50 --base-price 1.20 --category drinks\n" +
			"  pos product ls --category drinks --search cof\n" +
			"  pos product rm 3",
	}
	cmd.AddCommand(
		newProductAddCommand(deps),
		newProductListCommand(deps),
		newProductShowCommand(deps),
		newProductEditCommand(deps),
		newProductRemoveCommand(deps),
	)
	return cmd
}

func newProductAddCommand(deps commandDeps) *cobra.Command {
	var (
		name      string
		price     string
		basePrice string
		code      string
		category  string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("product add does not accept positional arguments")
			}
			if strings.TrimSpace(price) == "" {
				return usageErrorf("product add requires --price")
			}
			selling, err := parseMoney("price", price)
			if err != nil {
				return err
			}
			var base *decimal.Decimal
			if cmd.Flags().Changed("base-price") {
				parsed, err := parseMoney("base-price", basePrice)
				if err != nil {
					return err
				}
				base = &parsed
			}

			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				product, err := svc.products.Create(ctx, app.CreateProductRequest{
					Name:         name,
					SellingPrice: selling,
					BasePrice:    base,
					ProductCode:  code,
					Category:     category,
				})
				if err != nil {
					return err
				}
				return printProductOutput(deps, *product)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Product name")
	cmd.Flags().StringVar(&price, "price", "", "Selling price")
	cmd.Flags().StringVar(&basePrice, "base-price", "", "Base (cost) price, defaults to the selling price")
	cmd.Flags().StringVar(&code, "code", "", "Optional product code")
	cmd.Flags().StringVar(&category, "category", "", "Product category")
	return cmd
}

func newProductListCommand(deps commandDeps) *cobra.Command {
	var (
		category string
		search   string
		desc     bool
	)

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List products sorted by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("product ls does not accept positional arguments")
			}
			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				products, err := svc.products.List(ctx, storage.ProductFilter{
					Category:   category,
					Search:     search,
					Descending: desc,
				})
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, products)
				}
				if deps.globals.Quiet {
					return nil
				}
				for _, product := range products {
					if err := writeProductLine(deps, product); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only products in this category (\"all\" for every category)")
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive name substring")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort by name descending")
	return cmd
}

func newProductShowCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one product",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("product show requires exactly one product id")
			}
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				product, err := svc.products.Get(ctx, id)
				if err != nil {
					return err
				}
				return printProductOutput(deps, *product)
			})
		},
	}
}

func newProductEditCommand(deps commandDeps) *cobra.Command {
	var (
		name      string
		price     string
		basePrice string
		code      string
		category  string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a product; unset flags keep their current value",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("product edit requires exactly one product id")
			}
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()

			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				current, err := svc.products.Get(ctx, id)
				if err != nil {
					return err
				}

				req := app.UpdateProductRequest{
					ID:           id,
					Name:         current.Name,
					SellingPrice: current.SellingPrice,
					BasePrice:    &current.BasePrice,
					Category:     current.Category,
				}
				if current.ProductCode != nil {
					req.ProductCode = *current.ProductCode
				}
				if flags.Changed("name") {
					req.Name = name
				}
				if flags.Changed("price") {
					if req.SellingPrice, err = parseMoney("price", price); err != nil {
						return err
					}
				}
				if flags.Changed("base-price") {
					parsed, err := parseMoney("base-price", basePrice)
					if err != nil {
						return err
					}
					req.BasePrice = &parsed
				}
				if flags.Changed("code") {
					req.ProductCode = code
				}
				if flags.Changed("category") {
					req.Category = category
				}

				product, err := svc.products.Update(ctx, req)
				if err != nil {
					return err
				}
				return printProductOutput(deps, *product)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Product name")
	cmd.Flags().StringVar(&price, "price", "", "Selling price")
	cmd.Flags().StringVar(&basePrice, "base-price", "", "Base (cost) price")
	cmd.Flags().StringVar(&code, "code", "", "Product code (empty clears it)")
	cmd.Flags().StringVar(&category, "category", "", "Product category")
	return cmd
}

func newProductRemoveCommand(deps commandDeps) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "Remove a product, or every product with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if len(args) != 0 {
					return usageErrorf("product rm --all does not accept a product id")
				}
				if !deps.globals.Yes {
					return usageErrorf("product rm --all removes every product (use --yes to confirm)")
				}
				return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
					if err := svc.products.DeleteAll(ctx); err != nil {
						return err
					}
					return printRemoved(deps, "products removed", "all")
				})
			}

			if len(args) != 1 {
				return usageErrorf("product rm requires exactly one product id")
			}
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				if err := svc.products.Delete(ctx, id); err != nil {
					return err
				}
				return printRemoved(deps, "product removed", args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Remove every product")
	return cmd
}

func parseProductID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErrorf("invalid product id %q", raw)
	}
	return id, nil
}

func printProductOutput(deps commandDeps, product storage.Product) error {
	if deps.globals.JSON {
		return printJSON(deps.out, product)
	}
	if deps.globals.Quiet {
		return nil
	}
	return writeProductLine(deps, product)
}

func writeProductLine(deps commandDeps, product storage.Product) error {
	code := "-"
	if product.ProductCode != nil {
		code = *product.ProductCode
	}
	_, err := fmt.Fprintf(
		deps.out,
		"id=%d name=%s price=%s base_price=%s category=%s code=%s\n",
		product.ID,
		product.Name,
		formatMoney(product.SellingPrice),
		formatMoney(product.BasePrice),
		product.Category,
		code,
	)
	return err
}

func printRemoved(deps commandDeps, what, id string) error {
	if deps.globals.JSON {
		return printJSON(deps.out, map[string]any{"removed": id})
	}
	if deps.globals.Quiet {
		return nil
	}
	_, err := fmt.Fprintf(deps.out, "%s: %s\n", what, id)
	return err
}
