package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/SigitArif/POS/internal/app"
	"github.com/SigitArif/POS/internal/storage"
	"github.com/spf13/cobra"
)

func newOrderCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Sales order operations",
		Example: "  pos order create --item 1:2 --item 4:1\n" +
			"  pos order ls --limit 10\n" +
			"  pos order show 3f2a...",
	}
	cmd.AddCommand(
		newOrderCreateCommand(deps),
		newOrderListCommand(deps),
		newOrderShowCommand(deps),
		newOrderRemoveCommand(deps),
	)
	return cmd
}

func newOrderCreateCommand(deps commandDeps) *cobra.Command {
	var items []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a sale at current product prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("order create does not accept positional arguments")
			}
			if len(items) == 0 {
				return usageErrorf("order create requires at least one --item product_id[:quantity]")
			}
			refs, err := parseOrderItems(items)
			if err != nil {
				return err
			}

			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				errs := app.NewErrorChannel()
				dispatcher := app.NewDispatcher(errs, svc.logger)
				defer dispatcher.Close()

				var detail *app.OrderDetail
				dispatcher.Go(ctx, "create sales order", func(opCtx context.Context) error {
					created, err := svc.orders.CreateFromRefs(opCtx, refs)
					if err != nil {
						return err
					}
					detail = created
					return nil
				})
				dispatcher.Wait()

				if err := errs.Current(); err != nil {
					errs.Clear()
					return err
				}
				return printOrderDetail(deps, *detail)
			})
		},
	}
	cmd.Flags().StringArrayVar(&items, "item", nil, "Order line as product_id[:quantity] (repeatable)")
	return cmd
}

func newOrderListCommand(deps commandDeps) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("order ls does not accept positional arguments")
			}
			if limit < 0 {
				return usageErrorf("order ls --limit must not be negative")
			}
			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				orders, err := svc.orders.List(ctx)
				if err != nil {
					return err
				}
				if limit > 0 && len(orders) > limit {
					orders = orders[:limit]
				}
				if deps.globals.JSON {
					return printJSON(deps.out, orders)
				}
				if deps.globals.Quiet {
					return nil
				}
				for _, order := range orders {
					if err := writeOrderLine(deps, order); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many orders (0 for all)")
	return cmd
}

func newOrderShowCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an order and its items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("order show requires exactly one order id")
			}
			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				detail, err := svc.orders.Get(ctx, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				return printOrderDetail(deps, *detail)
			})
		},
	}
}

func newOrderRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove an order and its items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("order rm requires exactly one order id")
			}
			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				if err := svc.orders.Delete(ctx, strings.TrimSpace(args[0])); err != nil {
					return err
				}
				return printRemoved(deps, "order removed", args[0])
			})
		},
	}
}

func parseOrderItems(values []string) ([]app.OrderLineRef, error) {
	refs := make([]app.OrderLineRef, 0, len(values))
	for _, value := range values {
		idPart, qtyPart, hasQty := strings.Cut(strings.TrimSpace(value), ":")
		id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil {
			return nil, usageErrorf("invalid --item %q: product id must be an integer", value)
		}
		quantity := 1
		if hasQty {
			quantity, err = strconv.Atoi(strings.TrimSpace(qtyPart))
			if err != nil {
				return nil, usageErrorf("invalid --item %q: quantity must be an integer", value)
			}
		}
		refs = append(refs, app.OrderLineRef{ProductID: id, Quantity: quantity})
	}
	return refs, nil
}

func writeOrderLine(deps commandDeps, order storage.SalesOrder) error {
	_, err := fmt.Fprintf(
		deps.out,
		"id=%s at=%s revenue=%s profit=%s\n",
		order.ID,
		order.DateTime.Local().Format("2006-01-02 15:04:05"),
		formatMoney(order.TotalRevenue),
		formatMoney(order.TotalProfit),
	)
	return err
}

func printOrderDetail(deps commandDeps, detail app.OrderDetail) error {
	if deps.globals.JSON {
		return printJSON(deps.out, detail)
	}
	if deps.globals.Quiet {
		return nil
	}
	if err := writeOrderLine(deps, detail.Order); err != nil {
		return err
	}
	for _, item := range detail.Items {
		if _, err := fmt.Fprintf(
			deps.out,
			"  product=%d name=%s category=%s qty=%d price=%s line_revenue=%s line_profit=%s\n",
			item.ProductID,
			item.ProductName,
			item.ProductCategory,
			item.Quantity,
			formatMoney(item.Price),
			formatMoney(item.LineRevenue()),
			formatMoney(item.LineProfit()),
		); err != nil {
			return err
		}
	}
	return nil
}
