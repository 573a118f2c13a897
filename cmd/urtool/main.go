// Command urtool encodes and decodes files as Uniform Resources, and
// derives a demo payload from a BIP-39 seed phrase for trying the
// encoder out without any other input.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/kortschak/qr"

	"github.com/blockchaincommons/ur/bc/fountain"
	"github.com/blockchaincommons/ur/bc/ur"
	"github.com/blockchaincommons/ur/bip39"
)

func main() {
	flag.Usage = usage
	flag.Parse()
	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "urtool: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: urtool <command> [flags] [args]

commands:
  encode   frame a file as one or more ur: strings
  decode   reassemble a file from ur: strings
  seed     derive a demo payload from a BIP-39 mnemonic

`)
	flag.PrintDefaults()
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "encode":
		return runEncode(args)
	case "decode":
		return runDecode(args)
	case "seed":
		return runSeed(args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	typ := fs.String("type", "bytes", "UR type")
	maxFragment := fs.Int("max-fragment", 200, "maximum fragment length in bytes")
	minFragment := fs.Int("min-fragment", 10, "minimum fragment length in bytes")
	maxParts := fs.Int("max-parts", 0, "stop after this many parts (0: stop once every pure fragment has been emitted once)")
	qrOut := fs.String("qr", "", "write numbered QR code PNGs to this directory instead of printing text")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("encode takes exactly one file argument")
	}

	message, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	enc, err := fountain.NewEncoder(message, *maxFragment, *minFragment, 0)
	if err != nil {
		return err
	}

	var i int
	for {
		if *maxParts > 0 && i >= *maxParts {
			break
		}
		if *maxParts == 0 && i > 0 && enc.IsComplete() {
			break
		}
		part := enc.NextPart()
		text := ur.Encode(*typ, message, int(part.SeqNum), part.SeqLen)
		if *qrOut != "" {
			if err := writeQRPNG(*qrOut, i, text); err != nil {
				return err
			}
		} else {
			fmt.Println(text)
		}
		i++
		if enc.IsSinglePart() {
			break
		}
	}
	return nil
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	out := fs.String("o", "", "output file (required)")
	fs.Parse(args)
	if *out == "" {
		return errors.New("decode requires -o")
	}

	var lines []string
	if fs.NArg() > 0 {
		lines = fs.Args()
	} else {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return err
		}
	}

	var d ur.Decoder
	for _, line := range lines {
		if err := d.Add(line); err != nil {
			return fmt.Errorf("adding part: %w", err)
		}
		if _, _, err := d.Result(); err == nil {
			break
		}
	}
	_, data, err := d.Result()
	if err != nil {
		return fmt.Errorf("decoding incomplete: %w", err)
	}
	return os.WriteFile(*out, data, 0o644)
}

func runSeed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	mnemonic := fs.String("mnemonic", "vocal tray giggle tool duck letter category pattern train magnet excite swamp", "BIP-39 mnemonic")
	passphrase := fs.String("passphrase", "", "BIP-39 passphrase")
	out := fs.String("o", "", "output file (required)")
	fs.Parse(args)
	if *out == "" {
		return errors.New("seed requires -o")
	}

	words, err := bip39.ParseMnemonic(*mnemonic)
	if err != nil {
		return fmt.Errorf("invalid mnemonic: %w", err)
	}
	seed := bip39.MnemonicSeed(words, *passphrase)
	return os.WriteFile(*out, seed, 0o644)
}

func writeQRPNG(dir string, index int, text string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	code, err := qr.Encode(text, qr.M)
	if err != nil {
		return fmt.Errorf("encoding QR for part %d: %w", index, err)
	}
	img := image.NewGray(image.Rect(0, 0, code.Size, code.Size))
	for y := 0; y < code.Size; y++ {
		for x := 0; x < code.Size; x++ {
			c := color.Gray{Y: 0xff}
			if code.Black(x, y) {
				c = color.Gray{Y: 0x00}
			}
			img.SetGray(x, y, c)
		}
	}
	f, err := os.Create(filepath.Join(dir, fmt.Sprintf("part-%04d.png", index)))
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
