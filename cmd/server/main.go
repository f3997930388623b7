// cmd/server/main.go
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Corphon/LocalVoice/internal/app"
	"github.com/Corphon/LocalVoice/internal/auth"
	"github.com/Corphon/LocalVoice/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "localvoice",
		Short:         "LocalVoice 社区文章发布服务",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	})
	root.AddCommand(newTokenCmd())
	return root
}

func serve() error {
	log.Println("🚀 启动 LocalVoice 服务器...")

	if err := app.Initialize(); err != nil {
		return err
	}
	cfg := app.GetApp().GetConfig()
	log.Printf("🔗 访问地址: http://localhost:%s", cfg.Port)

	if err := app.Run(); err != nil {
		return err
	}
	log.Println("✅ 服务器优雅关闭完成")
	return nil
}

// newTokenCmd 使用配置中的密钥为用户签发访问令牌
func newTokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "为用户签发访问令牌",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			if cfg.AuthSecret == "" {
				return errors.New("AUTH_SECRET_KEY 未设置，签发的令牌无法被服务器验证")
			}
			if ttl <= 0 {
				ttl = cfg.TokenTTL
			}

			token, err := auth.GenerateToken(args[0], &auth.TokenConfig{
				Secret:     auth.NormalizeSecret([]byte(cfg.AuthSecret)),
				Expiration: ttl,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "令牌有效期，默认使用 TOKEN_TTL")
	return cmd
}
