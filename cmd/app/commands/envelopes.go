package commands

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	envelopeDomain "github.com/allisson/envelope/internal/envelope/domain"
	envelopeUseCase "github.com/allisson/envelope/internal/envelope/usecase"
)

// maxLineSize bounds a single NDJSON line read by re-encrypt.
const maxLineSize = 16 * 1024 * 1024

// validateEnvelopeFormat rejects envelope encodings other than json and token.
func validateEnvelopeFormat(format string) error {
	switch format {
	case "json", "token":
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid options: json, token)", format)
	}
}

// parseEnvelope accepts either the JSON form or the compact token form.
func parseEnvelope(input []byte) (*envelopeDomain.Envelope, error) {
	input = bytes.TrimSpace(input)
	if len(input) > 0 && input[0] == '{' {
		var envelope envelopeDomain.Envelope
		if err := json.Unmarshal(input, &envelope); err != nil {
			return nil, err
		}
		return &envelope, nil
	}
	return envelopeDomain.ParseEnvelope(string(input))
}

// encodeEnvelope renders an envelope in format without a trailing newline.
func encodeEnvelope(envelope *envelopeDomain.Envelope, format string) ([]byte, error) {
	if format == "token" {
		return []byte(envelope.String()), nil
	}
	return json.Marshal(envelope)
}

// RunEncrypt reads the whole input as plaintext and writes one envelope.
// An empty keyVersion encrypts under the current key.
func RunEncrypt(
	ctx context.Context,
	useCase envelopeUseCase.EnvelopeUseCase,
	reader io.Reader,
	writer io.Writer,
	keyVersion, format string,
) error {
	if err := validateEnvelopeFormat(format); err != nil {
		return err
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read plaintext: %w", err)
	}

	var envelope *envelopeDomain.Envelope
	if keyVersion == "" {
		envelope, err = useCase.Encrypt(ctx, plaintext)
	} else {
		envelope, err = useCase.EncryptWithVersion(ctx, plaintext, keyVersion)
	}
	if err != nil {
		return fmt.Errorf("failed to encrypt: %w", err)
	}

	out, err := encodeEnvelope(envelope, format)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	_, err = fmt.Fprintln(writer, string(out))
	return err
}

// RunDecrypt reads one envelope in JSON or token form and writes the raw plaintext.
func RunDecrypt(
	ctx context.Context,
	useCase envelopeUseCase.EnvelopeUseCase,
	reader io.Reader,
	writer io.Writer,
) error {
	input, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read envelope: %w", err)
	}

	envelope, err := parseEnvelope(input)
	if err != nil {
		return fmt.Errorf("failed to parse envelope: %w", err)
	}

	plaintext, err := useCase.Decrypt(ctx, envelope)
	if err != nil {
		return fmt.Errorf("failed to decrypt: %w", err)
	}

	_, err = writer.Write(plaintext)
	return err
}

// reEncryptLine is one input line of a re-encrypt run.
type reEncryptLine struct {
	number   int
	raw      string
	format   string
	envelope *envelopeDomain.Envelope
	err      error
}

// RunReEncrypt migrates newline-delimited envelopes to targetVersion.
//
// Every input line produces exactly one output line in the same order. A
// migrated line keeps its input encoding (JSON or token). A line that cannot be
// parsed or migrated is written back unchanged and reported on the error writer,
// so the output can replace the input without losing data. Blank lines pass
// through. Lines are sent to ReEncryptBatch in chunks of batchSize.
func RunReEncrypt(
	ctx context.Context,
	useCase envelopeUseCase.EnvelopeUseCase,
	logger *slog.Logger,
	streams IOTuple,
	targetVersion string,
	batchSize int,
) error {
	if targetVersion == "" {
		return fmt.Errorf("target key version is required")
	}
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	scanner := bufio.NewScanner(streams.Reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		chunk               []*reEncryptLine
		migrated, failed, n int
	)

	flush := func() error {
		if err := reEncryptChunk(ctx, useCase, chunk, targetVersion); err != nil {
			return err
		}
		for _, line := range chunk {
			out := line.raw
			switch {
			case line.err != nil:
				failed++
				_, _ = fmt.Fprintf(streams.ErrWriter, "line %d: %v\n", line.number, line.err)
			case line.envelope != nil:
				encoded, err := encodeEnvelope(line.envelope, line.format)
				if err != nil {
					return fmt.Errorf("line %d: failed to encode envelope: %w", line.number, err)
				}
				out = string(encoded)
				migrated++
			}
			if _, err := fmt.Fprintln(streams.Writer, out); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		chunk = chunk[:0]
		return nil
	}

	for scanner.Scan() {
		n++
		chunk = append(chunk, newReEncryptLine(n, scanner.Text()))
		if len(chunk) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Info("re-encryption completed",
		slog.String("target_version", targetVersion),
		slog.Int("lines", n),
		slog.Int("migrated", migrated),
		slog.Int("failed", failed),
	)

	if failed > 0 {
		return fmt.Errorf("%d of %d envelope(s) could not be re-encrypted", failed, migrated+failed)
	}
	return nil
}

func newReEncryptLine(number int, raw string) *reEncryptLine {
	line := &reEncryptLine{number: number, raw: raw, format: "token"}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return line
	}
	if strings.HasPrefix(trimmed, "{") {
		line.format = "json"
	}
	line.envelope, line.err = parseEnvelope([]byte(trimmed))
	return line
}

// reEncryptChunk replaces the envelope of every parsed line in chunk with its
// migrated version, or records the element's error.
func reEncryptChunk(
	ctx context.Context,
	useCase envelopeUseCase.EnvelopeUseCase,
	chunk []*reEncryptLine,
	targetVersion string,
) error {
	pending := make([]*reEncryptLine, 0, len(chunk))
	envelopes := make([]*envelopeDomain.Envelope, 0, len(chunk))
	for _, line := range chunk {
		if line.err == nil && line.envelope != nil {
			pending = append(pending, line)
			envelopes = append(envelopes, line.envelope)
		}
	}
	if len(envelopes) == 0 {
		return nil
	}

	results, err := useCase.ReEncryptBatch(ctx, envelopes, targetVersion)
	if err != nil {
		return fmt.Errorf("failed to re-encrypt batch: %w", err)
	}
	for i, result := range results {
		pending[i].envelope, pending[i].err = result.Envelope, result.Err
	}
	return nil
}
