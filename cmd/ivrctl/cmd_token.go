package main

import (
	"ProjectIVR/internal/entity"
	jwtPkg "ProjectIVR/pkg/jwt"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	tokenUsername string
	tokenEmail    string
	tokenTTL      time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenUsername, "username", "", "operator username")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "operator email")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("username")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign an operator bearer token for the admin API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenTTL <= 0 {
			return fmt.Errorf("--ttl must be positive")
		}

		token, exp, err := jwtPkg.SignOperator(entity.Operator{
			ID:       tokenUsername,
			Username: tokenUsername,
			Email:    tokenEmail,
		}, tokenTTL)
		if err != nil {
			return err
		}

		fmt.Println(token)
		if verbose {
			fmt.Printf("expires at %s\n", time.Unix(exp, 0).Format(time.RFC3339))
		}
		return nil
	},
}
