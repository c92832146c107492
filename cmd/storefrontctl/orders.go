package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/storefront-bot/internal/adapter/handler"
)

// tokenEnv supplies the default for --token.
const tokenEnv = "STOREFRONT_ADMIN_TOKEN"

// dialFunc opens a connection to the admin gRPC server. The returned func
// closes it.
type dialFunc func(addr string) (grpc.ClientConnInterface, func() error, error)

func dialAdmin(addr string) (grpc.ClientConnInterface, func() error, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Close, nil
}

type cli struct {
	dial     dialFunc
	addr     string
	operator int64
	token    string
	timeout  time.Duration
	asJSON   bool
}

func newRootCmd(dial dialFunc) *cobra.Command {
	c := &cli{dial: dial}

	rootCmd := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "storefrontctl - operator console for the storefront bot",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&c.addr, "addr", "127.0.0.1:50051", "Admin gRPC address")
	rootCmd.PersistentFlags().Int64Var(&c.operator, "operator", 0, "Operator chat ID")
	rootCmd.PersistentFlags().StringVar(&c.token, "token", os.Getenv(tokenEnv), "Admin API token (default $"+tokenEnv+")")
	rootCmd.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVarP(&c.asJSON, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(c.ordersCmd())
	return rootCmd
}

func (c *cli) ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and settle pending orders",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List pending orders, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd, func(ctx context.Context, client *handler.OrderAdminClient) error {
				resp, err := client.ListOrders(ctx, &handler.ListOrdersRequest{OperatorID: c.operator})
				if err != nil {
					return err
				}
				if c.asJSON {
					return writeJSON(cmd.OutOrStdout(), resp.Orders)
				}
				return writeOrders(cmd.OutOrStdout(), resp.Orders)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "confirm [requester-id]",
		Short: "Confirm payment and provision the requester's account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requesterID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withClient(cmd, func(ctx context.Context, client *handler.OrderAdminClient) error {
				resp, err := client.ConfirmOrder(ctx, &handler.OrderActionRequest{OperatorID: c.operator, RequesterID: requesterID})
				if err != nil {
					return err
				}
				if c.asJSON {
					return writeJSON(cmd.OutOrStdout(), resp.Result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created %s on plan %s\n", resp.Result.Username, resp.Result.Order.PlanName)
				if !resp.Result.Delivered {
					fmt.Fprintf(out, "Delivery failed, hand over manually:\n  username: %s\n  password: %s\n",
						resp.Result.Username, resp.Result.Password)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel [requester-id]",
		Short: "Cancel the requester's pending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requesterID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withClient(cmd, func(ctx context.Context, client *handler.OrderAdminClient) error {
				resp, err := client.CancelOrder(ctx, &handler.OrderActionRequest{OperatorID: c.operator, RequesterID: requesterID})
				if err != nil {
					return err
				}
				if c.asJSON {
					return writeJSON(cmd.OutOrStdout(), resp.Order)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled order %s (%s)\n", resp.Order.OrderID, resp.Order.PlanName)
				return nil
			})
		},
	})

	return cmd
}

func (c *cli) withClient(cmd *cobra.Command, fn func(context.Context, *handler.OrderAdminClient) error) error {
	if c.operator == 0 {
		return fmt.Errorf("--operator is required")
	}
	if c.token == "" {
		return fmt.Errorf("--token or %s is required", tokenEnv)
	}
	conn, closeConn, err := c.dial(c.addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.addr, err)
	}
	defer closeConn()

	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()
	return fn(ctx, handler.NewOrderAdminClient(conn, c.token))
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid requester id %q", s)
	}
	return id, nil
}

func writeOrders(w io.Writer, orders []handler.OrderView) error {
	if len(orders) == 0 {
		_, err := fmt.Fprintln(w, "No pending orders.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REQUESTER\tNAME\tPLAN\tPRICE\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", o.RequesterID, o.Requester, o.PlanName, o.PlanPrice,
			o.CreatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
