package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ponyo877/bingo/server/adaptor"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Checks server health over gRPC.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := viper.GetString(grpcServerAddressKey)
		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("did not connect to gRPC server: %w", err)
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		status, err := checkHealth(ctx, healthpb.NewHealthClient(conn))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", addr, status)
		return nil
	},
}

func checkHealth(ctx context.Context, client healthpb.HealthClient) (string, error) {
	res, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: adaptor.HealthService})
	if err != nil {
		return "", fmt.Errorf("health check failed: %w", err)
	}
	return res.GetStatus().String(), nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
