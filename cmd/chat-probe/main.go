// 命令 chat-probe：通过聊天管线发送一条测试消息（可附带图片），用于联调生成式 AI 接口
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"recycle-right/internal/bins"
	"recycle-right/internal/gemini"
	"recycle-right/internal/logger"
	"recycle-right/internal/tools"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const defaultPrompt = "Can you find the nearest recycling bin or station? My current coordinates are (103.789605, 1.299327)"

func main() {
	_ = godotenv.Load(".env")
	app := &cli.App{
		Name:  "chat-probe",
		Usage: "send a test prompt through the chat pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "prompt",
				Aliases: []string{"p"},
				Value:   defaultPrompt,
				Usage:   "user message text",
			},
			&cli.StringFlag{
				Name:  "image",
				Usage: "image file sent before the prompt",
			},
			&cli.BoolFlag{
				Name:  "recognise",
				Usage: "run image recognition instead of chat (requires --image)",
			},
			&cli.StringFlag{
				Name:    "bins",
				Value:   "data/RecyclingBins.json",
				Usage:   "bin feature collection used by getNearestBin",
				EnvVars: []string{"BINS_PATH"},
			},
			&cli.StringFlag{
				Name:    "mode",
				Value:   "relay",
				Usage:   "tool result mode: relay or direct",
				EnvVars: []string{"TOOL_RESULT_MODE"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 60 * time.Second,
				Usage: "overall deadline",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		logger.Setup().Error("chat_probe_error", "err", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	l := logger.Setup()
	mode, err := gemini.ParseToolResultMode(c.String("mode"))
	if err != nil {
		return err
	}
	points, err := bins.LoadFile(c.String("bins"))
	if err != nil {
		return err
	}
	client := gemini.NewClient(gemini.ConfigFromEnv(), nil)
	svc := gemini.NewService(client, tools.NewDispatcher(bins.NewIndex(points, bins.DefaultK)), gemini.WithToolResultMode(mode))
	if svc.DemoMode() {
		l.Warn("gemini_demo_mode", "hint", "set GEMINI_API_KEY to reach the provider")
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	var img, mime string
	if path := c.String("image"); path != "" {
		img, mime, err = readImage(path)
		if err != nil {
			return err
		}
	}

	start := time.Now()
	if c.Bool("recognise") {
		if img == "" {
			return cli.Exit("--recognise requires --image", 2)
		}
		out, err := svc.Recognise(ctx, img, mime)
		if err != nil {
			return err
		}
		l.Info("probe_done", "op", "recognise", "duration_ms", time.Since(start).Milliseconds())
		fmt.Fprintln(c.App.Writer, string(out))
		return nil
	}

	var msgs []gemini.ChatMsg
	if img != "" {
		msgs = append(msgs, gemini.ChatMsg{Type: gemini.MsgImage, Role: gemini.RoleUser, MimeType: mime, Content: img})
	}
	msgs = append(msgs, gemini.ChatMsg{Type: gemini.MsgText, Role: gemini.RoleUser, Content: c.String("prompt")})
	reply, err := svc.Chat(ctx, msgs)
	if err != nil {
		return err
	}
	l.Info("probe_done", "op", "chat", "messages", len(msgs), "duration_ms", time.Since(start).Milliseconds())
	fmt.Fprintln(c.App.Writer, reply)
	return nil
}

// readImage 读取图片并编码为 base64；MIME 类型按内容嗅探，无法识别时按扩展名
func readImage(path string) (string, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", errors.Wrapf(err, "read image %s", path)
	}
	mime := http.DetectContentType(b)
	if !strings.HasPrefix(mime, "image/") {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".png":
			mime = "image/png"
		case ".webp":
			mime = "image/webp"
		default:
			mime = gemini.DefaultImageMimeType
		}
	}
	return base64.StdEncoding.EncodeToString(b), mime, nil
}
