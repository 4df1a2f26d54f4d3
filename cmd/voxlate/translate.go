package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lukasbauer/voxlate/internal/app"
	"github.com/lukasbauer/voxlate/internal/extract"
	"github.com/lukasbauer/voxlate/internal/pipeline"
	"github.com/lukasbauer/voxlate/internal/tts"
)

var (
	translateFile     string
	translateText     string
	translateLanguage string
	translateOut      string
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate text or a document and write translation.txt and translated_audio.mp3",
	Long: "Translate English text (--text) or a .txt/.csv/.xls/.xlsx/.pdf document (--file)\n" +
		"into the target language, then synthesize the translation to speech.",
	Example: "  voxlate translate --text \"Hello, how are you?\" --lang Spanish\n" +
		"  voxlate translate --file report.pdf --lang \"Chinese (Simplified)\" --out ./out",
	RunE: runTranslate,
}

func init() {
	translateCmd.Flags().StringVarP(&translateFile, "file", "f", "", "Document to translate")
	translateCmd.Flags().StringVarP(&translateText, "text", "t", "", "Text to translate")
	translateCmd.Flags().StringVarP(&translateLanguage, "lang", "l", tts.DefaultLanguage, "Target language display name")
	translateCmd.Flags().StringVarP(&translateOut, "out", "o", "", "Output directory (defaults to OUTPUT_DIR)")
	translateCmd.MarkFlagsMutuallyExclusive("file", "text")
	translateCmd.MarkFlagsOneRequired("file", "text")
	rootCmd.AddCommand(translateCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := pipeline.Request{Text: translateText, TargetLanguage: translateLanguage}
	if translateFile != "" {
		doc, err := readDocument(translateFile)
		if err != nil {
			return err
		}
		req.Document = doc
	}

	cfg := app.LoadConfigFromEnv()
	if translateOut != "" {
		cfg.OutputDir = translateOut
	}

	logOut := io.Discard
	if verbose {
		logOut = os.Stderr
	}
	logger := log.New(logOut, "", log.LstdFlags)

	a, err := app.New(cfg, logger)
	if err != nil {
		var missing *app.MissingCredentialError
		if errors.As(err, &missing) {
			return fmt.Errorf("%w (see --help for provider settings)", err)
		}
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	if verbose {
		req.Progress = func(e pipeline.Event) {
			if e.Stage == pipeline.StageTranslation {
				fmt.Fprintf(os.Stderr, "translated chunk %d/%d\n", e.Chunk, e.Chunks)
				return
			}
			fmt.Fprintf(os.Stderr, "%s\n", e.Stage)
		}
	}

	res, err := a.Pipeline().Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.TranslatedText)
	fmt.Fprintf(cmd.ErrOrStderr(), "text:  %s\naudio: %s\n", res.TextPath, res.AudioPath)
	return nil
}

func readDocument(path string) (*extract.Document, error) {
	format, err := extract.DetectFormat(path, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &extract.Document{Name: filepath.Base(path), Format: format, Data: data}, nil
}
