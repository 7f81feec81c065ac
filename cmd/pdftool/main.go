package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wudi/pdfworks/artifact"
	"github.com/wudi/pdfworks/document"
	"github.com/wudi/pdfworks/extractor"
	"github.com/wudi/pdfworks/ocr/tesseract"
	"github.com/wudi/pdfworks/optimize"
	"github.com/wudi/pdfworks/pipeline"
	"github.com/wudi/pdfworks/raster"
	"github.com/wudi/pdfworks/security"
	"github.com/wudi/pdfworks/transform"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, fs *flag.FlagSet, args []string) (artifact.Artifact, error)
}

var commands = []command{
	{"merge", "merge <a.pdf> <b.pdf>...", runMerge},
	{"split", "split [-ranges 1-3,5] [-individual] [-parts n] <in.pdf>", runSplit},
	{"delete", "delete -pages 2,4-5 <in.pdf>", runDelete},
	{"reorder", "reorder -order 3,1,2 <in.pdf>", runReorder},
	{"compress", "compress [-quality low|medium|high] <in.pdf>", runCompress},
	{"encrypt", "encrypt -password pw <in.pdf>", runEncrypt},
	{"decrypt", "decrypt [-password pw] <in.pdf>", runDecrypt},
	{"watermark", "watermark (-text t | -image img.png) <in.pdf>", runWatermark},
	{"text", "text <in.pdf>", runText},
	{"ocr", "ocr [-lang tur+eng] <in.pdf|in.png>", runOCR},
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: pdftool <command> [flags] <input>...\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %s\n", c.usage)
	}
	fmt.Fprintf(os.Stderr, "\nEvery command accepts -o <path> for the output file.\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	name := os.Args[1]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		fs := flag.NewFlagSet(c.name, flag.ExitOnError)
		out := fs.String("o", "", "Output path (defaults to the result name in the current directory)")
		fs.Usage = func() {
			fmt.Fprintf(fs.Output(), "Usage: pdftool %s\n", c.usage)
			fs.PrintDefaults()
		}
		res, err := c.run(context.Background(), fs, os.Args[2:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "pdftool %s: %v\n", c.name, err)
			os.Exit(1)
		}
		path := *out
		if path == "" {
			path = res.Name
		}
		if err := os.WriteFile(path, res.Data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "pdftool %s: write output: %v\n", c.name, err)
			os.Exit(1)
		}
		fmt.Printf("%s (%d bytes)\n", path, len(res.Data))
		return
	}
	usage()
	os.Exit(2)
}

// inputs parses fs and requires at least min positional arguments.
func inputs(fs *flag.FlagSet, args []string, min int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < min {
		fs.Usage()
		return nil, fmt.Errorf("expected at least %d input file(s)", min)
	}
	return fs.Args(), nil
}

func loadOne(fs *flag.FlagSet, args []string) (*document.Source, error) {
	paths, err := inputs(fs, args, 1)
	if err != nil {
		return nil, err
	}
	return document.LoadFile(paths[0])
}

func pdf(name string, src *document.Source) artifact.Artifact {
	return artifact.New(name, src.Bytes())
}

func runMerge(_ context.Context, fs *flag.FlagSet, args []string) (artifact.Artifact, error) {
	paths, err := inputs(fs, args, 2)
	if err != nil {
		return artifact.Artifact{}, err
	}
	data := make([][]byte, len(paths))
	for i, p := range paths {
		if data[i], err = os.ReadFile(p); err != nil {
			return artifact.Artifact{}, err
		}
	}
	out, err := transform.Merge(data)
	if err != nil {
		return artifact.Artifact{}, err
	}
	return pdf("merged.pdf", out), nil
}

func runSplit(_ context.Context, fs *flag.FlagSet, args []string) (artifact.Artifact, error) {
	ranges := fs.String("ranges", "", "Comma-separated page ranges, one output per range")
	individual := fs.Bool("individual", false, "One output per page")
	parts := fs.Int("parts", 0, "Split into n roughly equal parts")
	src, err := loadOne(fs, args)
	if err != nil {
		return artifact.Artifact{}, err
	}
	var out []*document.Source
	switch {
	case *individual:
		out, err = transform.SplitIndividual(src)
	case *parts > 0:
		out, err = transform.SplitByCount(src, *parts)
	default:
		out, err = transform.SplitByRanges(src, *ranges)
	}
	if err != nil {
		return artifact.Artifact{}, err
	}
	arts := make([]artifact.Artifact, len(out))
	for i, s := range out {
		arts[i] = pdf(s.Name(), s)
	}
	if len(arts) == 1 {
		arts[0].Name = "split.pdf"
	}
	return artifact.Package(arts, "split_pages.zip", artifact.Sequential("part"))
}

func runDelete(_ context.Context, fs *flag.FlagSet, args []string) (artifact.Artifact, error) {
	pages := fs.String("pages", "", "Pages to delete, e.g. 2,4-5")
	src, err := loadOne(fs, args)
	if err != nil {
		return artifact.Artifact{}, err
	}
	return build(transform.DeletePages(src, *pages))
}

func runReorder(_ context.Context, fs *flag.FlagSet, args []string) (artifact.Artifact, error) {
	order := fs.String("order", "", "New page order, e.g. 3,1,2")
	src, err := loadOne(fs, args)
	if err != nil {
		return artifact.Artifact{}, err
	}
	return build(transform.ReorderPages(src, *order))
}

func build(g *document.Graph) (artifact.Artifact, error) {
	if g.Len() == 0 {
		return artifact.Artifact{}, fmt.Errorf("no pages left")
	}
	out, err := g.Build("processed.pdf")
	if err != nil {
		return artifact.Artifact{}, err
	}
	return pdf("processed.pdf", out), nil
}

func runCompress(ctx context.Context, fs *flag.FlagSet, args []string) (artifact.Artifact, error) {
	level := fs.String("quality", "medium", "Compression tier: low, medium or high")
	paths, err := inputs(fs, args, 1)
	if err != nil {
		return artifact.Artifact{}, err
	}
	q, err := optimize.ParseQuality(*level)
	if err != nil {
		return artifact.Artifact{}, err
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		return artifact.Artifact{}, err
	}
	out, err := optimize.Compress(ctx, data, q)
	if err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.New("compressed.pdf", out), nil
}

func runEncrypt(_ context.Context, fs *flag.FlagSet, args []string) (artifact.Artifact, error) {
	password := fs.String("password", "", "User and owner password")
	return withPassword(fs, args, password, "protected.pdf", security.Encrypt)
}

func runDecrypt(_ context.Context, fs *flag.FlagSet, args []string) (artifact.Artifact, error) {
	password := fs.String("password", "", "Password of the encrypted file")
	return withPassword(fs, args, password, "unlocked.pdf", security.Decrypt)
}

func withPassword(fs *flag.FlagSet, args []string, password *string, name string, op func([]byte, string) ([]byte, error)) (artifact.Artifact, error) {
	paths, err := inputs(fs, args, 1)
	if err != nil {
		return artifact.Artifact{}, err
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		return artifact.Artifact{}, err
	}
	out, err := op(data, *password)
	if err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.New(name, out), nil
}

func runWatermark(_ context.Context, fs *flag.FlagSet, args []string) (artifact.Artifact, error) {
	text := fs.String("text", "", "Watermark text")
	image := fs.String("image", "", "PNG or JPEG watermark image")
	src, err := loadOne(fs, args)
	if err != nil {
		return artifact.Artifact{}, err
	}
	var out *document.Source
	switch {
	case *image != "":
		data, err := os.ReadFile(*image)
		if err != nil {
			return artifact.Artifact{}, err
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(*image)), ".")
		out, err = transform.ImageWatermark(src, data, ext)
		if err != nil {
			return artifact.Artifact{}, err
		}
	case strings.TrimSpace(*text) != "":
		if out, err = transform.TextWatermark(src, *text); err != nil {
			return artifact.Artifact{}, err
		}
	default:
		return artifact.Artifact{}, fmt.Errorf("one of -text or -image is required")
	}
	return pdf("watermarked.pdf", out), nil
}

func runText(_ context.Context, fs *flag.FlagSet, args []string) (artifact.Artifact, error) {
	paths, err := inputs(fs, args, 1)
	if err != nil {
		return artifact.Artifact{}, err
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		return artifact.Artifact{}, err
	}
	text, err := extractor.Text(data)
	if err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.New("extracted_text.txt", []byte(text)), nil
}

func runOCR(ctx context.Context, fs *flag.FlagSet, args []string) (artifact.Artifact, error) {
	lang := fs.String("lang", "tur+eng", "Tesseract languages joined by +")
	dpi := fs.Int("dpi", 200, "Rasterization resolution for scanned PDFs")
	pdftoppm := fs.String("pdftoppm", "", "Path to the pdftoppm binary")
	paths, err := inputs(fs, args, 1)
	if err != nil {
		return artifact.Artifact{}, err
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		return artifact.Artifact{}, err
	}
	langs := strings.Split(*lang, "+")
	cfg := pipeline.DefaultConfig()
	cfg.Languages = langs
	cfg.DPI = *dpi
	p := pipeline.NewOCR(raster.NewPoppler(*pdftoppm, "", nil), tesseract.NewTesseractEngine(langs...), cfg, nil)
	parts, err := p.Process(ctx, filepath.Base(paths[0]), data)
	if err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.Package(parts, pipeline.BundleName, pipeline.ResultNamer)
}
