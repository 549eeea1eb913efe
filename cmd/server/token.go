package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/design-orders-backend/internal/service"
)

// tokenCmd выпускает access токен для локальной разработки: регистрации в сервисе нет,
// пользователи приходят из внешней системы.
func tokenCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Выпустить access токен для разработки",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := bootstrap()
			if err != nil {
				return err
			}
			if cfg.Env == "production" {
				return errors.New("main: выпуск токенов из CLI запрещён в production")
			}

			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("main: некорректный user id: %w", err)
			}

			token, exp, err := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL).Issue(userID, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n# истекает %s\n", token, exp.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "user", "роль в токене")
	return cmd
}
