package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	config "github.com/aicert/cert_platform/configs"
	"github.com/aicert/cert_platform/database"
	"github.com/aicert/cert_platform/llm"
	"github.com/aicert/cert_platform/logger"
	"github.com/aicert/cert_platform/ocr"
	"github.com/aicert/cert_platform/services"
	"github.com/aicert/cert_platform/storage"
	"github.com/spf13/cobra"
)

func newLogger(settings config.Settings) (logger.Logger, error) {
	return logger.NewLogger(logger.LogConfig{
		Output:   settings.LogOutput,
		Level:    settings.LogLevel,
		FilePath: settings.LogFilePath,
	})
}

func newParser(ctx context.Context, settings config.Settings, log logger.Logger) (*services.QuestionParser, error) {
	completer, err := llm.NewFromConfig(ctx, settings, log)
	if err != nil {
		return nil, err
	}
	if !completer.Enabled() {
		return nil, fmt.Errorf("no LLM API key configured for provider %q", settings.LLMProvider)
	}
	return services.NewQuestionParser(completer, services.ParserConfig{
		MaxInputChars: settings.LLMMaxInputChars,
		Temperature:   settings.LLMTemperature,
		MaxTokens:     settings.LLMMaxTokens,
	}, log), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

func extractCmd() *cobra.Command {
	var dpi float64
	cmd := &cobra.Command{
		Use:   "extract <pdf>",
		Short: "Print the text extracted from a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.Load()
			log, err := newLogger(settings)
			if err != nil {
				return err
			}
			if dpi <= 0 {
				dpi = settings.OCRDPI
			}
			extractor := ocr.New(settings.OCRLanguages, settings.TessdataDir, log, ocr.WithDPI(dpi))
			text, err := extractor.Extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if text == "" {
				return services.ErrExtractionEmpty
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().Float64Var(&dpi, "dpi", 0, "render resolution for OCR (default: OCR_DPI)")
	return cmd
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <txt>",
		Short: "Parse extracted text into questions and print them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.Load()
			log, err := newLogger(settings)
			if err != nil {
				return err
			}
			text, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			parser, err := newParser(cmd.Context(), settings, log)
			if err != nil {
				return err
			}
			return printJSON(cmd, parser.Parse(cmd.Context(), string(text)))
		},
	}
}

func ingestCmd() *cobra.Command {
	var uploader uint
	cmd := &cobra.Command{
		Use:   "ingest <pdf>",
		Short: "Run a PDF through the full pipeline against the configured database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.Load()
			log, err := newLogger(settings)
			if err != nil {
				return err
			}
			db, err := database.Open(settings.DatabaseURL)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			if err := database.SeedAccounts(db, settings); err != nil {
				return err
			}
			store, err := storage.NewLocalStore(settings.UploadDir)
			if err != nil {
				return err
			}
			parser, err := newParser(cmd.Context(), settings, log)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}

			extractor := ocr.New(settings.OCRLanguages, settings.TessdataDir, log, ocr.WithDPI(settings.OCRDPI))
			ingestion := services.NewIngestionService(db, store, extractor, parser, services.IngestionConfig{
				MaxUploadBytes: settings.MaxUploadBytes,
				PageCount:      ocr.PageCount,
			}, log)

			summary, err := ingestion.Ingest(cmd.Context(), services.Upload{
				Filename: filepath.Base(args[0]),
				Size:     info.Size(),
				Content:  f,
			}, uploader)
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
	cmd.Flags().UintVar(&uploader, "uploader", 1, "user id recorded as the uploader")
	return cmd
}
