package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alexhooketh/tg-stories-viewers-profiler/internal/collector"
	"github.com/alexhooketh/tg-stories-viewers-profiler/internal/config"
	"github.com/alexhooketh/tg-stories-viewers-profiler/internal/server"
	"github.com/alexhooketh/tg-stories-viewers-profiler/internal/visualizer"
	"github.com/alexhooketh/tg-stories-viewers-profiler/pkg/storage"
)

var debug bool

func main() {
	root := &cobra.Command{
		Use:           "stories-profiler",
		Short:         "Сбор и оценка просмотров Telegram-историй",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "подробные логи MTProto-клиента")
	root.AddCommand(collectCmd(), visualizeCmd(), serveCmd())

	if err := root.Execute(); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
}

func collectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Собрать просмотры закреплённых историй в новую папку запуска",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return collector.Run(cmd.Context(), cfg, debug)
		},
	}
}

func visualizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visualize <папка запуска> <id зрителя>",
		Short: "Построить график вовлечённости зрителя по записям запуска",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			viewerID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("некорректный идентификатор зрителя %q", args[1])
			}
			marks, err := cmd.Flags().GetStringArray("mark")
			if err != nil {
				return err
			}
			landmarks, err := visualizer.ParseLandmarks(marks)
			if err != nil {
				return err
			}
			return visualizer.Run(cfg, visualizer.Options{
				Folder:    args[0],
				ViewerID:  viewerID,
				Landmarks: landmarks,
				Out:       os.Stdout,
			})
		},
	}
	cmd.Flags().StringArrayP("mark", "m", nil,
		"отметка вида '2024-07-16 12:00|подпись события', можно повторять")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Поднять HTTP-витрину над папкой результатов",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			port, err := cmd.Flags().GetString("port")
			if err != nil {
				return err
			}
			r := server.New(storage.NewRunStore(cfg.ResultsDir)).Router()
			log.Printf("[INFO] Starting server on port %s", port)
			return r.Run(":" + port)
		},
	}
	cmd.Flags().String("port", getPort(), "порт HTTP-витрины")
	return cmd
}

// getPort берёт порт из переменных окружения, по умолчанию 8080.
func getPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}
