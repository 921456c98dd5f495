package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"thesis-track/backend/internal/model"
	"thesis-track/backend/pkg/jwt"
)

// tokenCmd 用共享密钥签发开发环境 Access Token，正式环境由身份服务签发
func tokenCmd() *cobra.Command {
	var (
		userID   string
		role     string
		name     string
		email    string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "签发开发用 Access Token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !model.IsKnownRole(role) {
				return fmt.Errorf("未知角色: %s", role)
			}
			if userID == "" {
				userID = uuid.NewString()
			} else if _, err := uuid.Parse(userID); err != nil {
				return fmt.Errorf("user-id 必须是 UUID: %w", err)
			}

			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			token, err := jwt.NewManager(&cfg.Auth).GenerateAccessToken(jwt.Identity{
				UserID:   userID,
				Role:     role,
				Name:     name,
				Email:    email,
				Inactive: inactive,
			})
			if err != nil {
				return err
			}

			fmt.Printf("%s %s (%s)\n", color.New(color.FgCyan).Sprint("user:"), userID, role)
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "用户 UUID（为空时随机生成）")
	cmd.Flags().StringVar(&role, "role", model.RoleStudent, "角色: student / professor / graduation_assistant / admin")
	cmd.Flags().StringVar(&name, "name", "dev", "显示名称")
	cmd.Flags().StringVar(&email, "email", "dev@example.com", "邮箱")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "签发停用账号的令牌")
	return cmd
}
