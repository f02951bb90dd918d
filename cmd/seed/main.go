package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sngm3741/ashby-forms/api/internal/config"
	"github.com/sngm3741/ashby-forms/api/internal/forms/application"
	"github.com/sngm3741/ashby-forms/api/internal/forms/domain"
	"github.com/sngm3741/ashby-forms/api/internal/interfaces/http/common"
	"github.com/sngm3741/ashby-forms/api/internal/server"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type seedOptions struct {
	envName     string
	envDir      string
	formsDir    string
	concurrency int
	dryRun      bool
	timeout     time.Duration
}

// formFile is one YAML form definition turned into a create command.
type formFile struct {
	path string
	cmd  application.CreateFormCommand
}

func main() {
	opts := parseFlags()

	if err := loadEnvFiles(opts.envDir, opts.envName); err != nil {
		log.Fatalf("環境変数の読み込みに失敗しました: %v", err)
	}

	files, err := loadFormFiles(opts.formsDir)
	if err != nil {
		log.Fatalf("フォーム定義の読み込みに失敗しました: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("%s にフォーム定義 (*.yaml) がありません", opts.formsDir)
	}
	if err := validateFormFiles(files); err != nil {
		log.Fatalf("フォーム定義が不正です: %v", err)
	}
	if opts.dryRun {
		log.Printf("検証のみ完了: forms=%d", len(files))
		return
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	storage, err := server.OpenStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("ストレージ接続に失敗しました: %v", err)
	}
	defer func() {
		_ = storage.Close(context.Background())
	}()

	ids, err := seedForms(ctx, application.NewFormService(storage.Forms), files, opts.concurrency)
	if err != nil {
		log.Fatalf("フォームの投入に失敗しました: %v", err)
	}
	for _, file := range files {
		log.Printf("登録: %s -> %s", file.path, ids[file.path])
	}
	log.Printf("Seed 完了: forms=%d driver=%s (env=%s)", len(ids), cfg.StoreDriver, opts.envName)
}

func parseFlags() seedOptions {
	var opts seedOptions
	flag.StringVar(&opts.envName, "env", "local", "env ディレクトリ内の env ファイル名 (例: local, staging)")
	flag.StringVar(&opts.envDir, "env-dir", "env", "env ファイルを置くディレクトリ")
	flag.StringVar(&opts.formsDir, "forms", filepath.Join("cmd", "seed", "seeds"), "フォーム定義 YAML のディレクトリ")
	flag.IntVar(&opts.concurrency, "concurrency", 4, "同時に登録するフォーム数")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "検証のみ行い登録しない")
	flag.DurationVar(&opts.timeout, "timeout", 60*time.Second, "全体のタイムアウト")
	flag.Parse()

	if opts.concurrency <= 0 {
		opts.concurrency = 1
	}
	return opts
}

// loadEnvFiles reads shared.env and <env>.env when they exist. Values already
// in the environment are kept.
func loadEnvFiles(dir, envName string) error {
	files := []string{
		filepath.Join(dir, "shared.env"),
		filepath.Join(dir, fmt.Sprintf("%s.env", envName)),
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	return nil
}

// loadFormFiles parses every *.yaml / *.yml file in dir concurrently. The
// result is sorted by path.
func loadFormFiles(dir string) ([]formFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)

	files := make([]formFile, len(paths))
	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			cmd, err := parseFormYAML(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			files[i] = formFile{path: path, cmd: cmd}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func parseFormYAML(raw []byte) (application.CreateFormCommand, error) {
	var payload common.FormPayload
	if err := yaml.Unmarshal(raw, &payload); err != nil {
		return application.CreateFormCommand{}, err
	}
	return payload.ToCommand()
}

// validateFormFiles checks every definition before anything is written so a
// bad file never leaves a partial seed behind.
func validateFormFiles(files []formFile) error {
	var problems []string
	for _, file := range files {
		form := domain.FormSchema{Title: file.cmd.Title}
		for _, field := range file.cmd.Fields {
			form.Fields = append(form.Fields, domain.FieldSchema{
				Name:          field.Name,
				Type:          field.Type,
				Required:      field.Required,
				AllowedValues: field.AllowedValues,
				DependsOn:     field.DependsOn,
			})
		}
		if err := domain.ValidateForm(form); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", file.path, err))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// seedForms creates the forms with at most concurrency requests in flight and
// returns the assigned ids keyed by file path.
func seedForms(ctx context.Context, forms application.FormService, files []formFile, concurrency int) (map[string]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	ids := make(map[string]string, len(files))
	for _, file := range files {
		file := file
		g.Go(func() error {
			form, err := forms.Create(ctx, file.cmd)
			if err != nil {
				return fmt.Errorf("%s: %w", file.path, err)
			}
			mu.Lock()
			ids[file.path] = form.ID
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}
