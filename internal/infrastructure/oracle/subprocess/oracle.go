// Package subprocess implements stereo.Oracle and rebuild.SmilesResolver by
// invoking an external cheminformatics command once per request.
//
// The command is run as
//
//	<command...> enumerate|resolve|smiles
//
// with one JSON request on stdin and one JSON response on stdout.  A non-zero
// exit status is a failure and stderr is attached to the error.
package subprocess

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/turtacn/mechstereo/internal/domain/stereo"
	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mechstereo/pkg/errors"
)

// Subcommands appended to Config.Command.
const (
	CmdEnumerate = "enumerate"
	CmdResolve   = "resolve"
	CmdSmiles    = "smiles"
)

const defaultTimeout = 30 * time.Second

// Config holds the oracle command settings.
type Config struct {
	Command []string      `mapstructure:"command"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Env is appended to the current process environment.
	Env []string `mapstructure:"env"`
}

// Oracle runs the configured command for every call.  It holds no mutable
// state and is safe for concurrent use.
type Oracle struct {
	cfg    Config
	logger logging.Logger
}

var _ stereo.Oracle = (*Oracle)(nil)

// New validates cfg and returns an Oracle.
func New(cfg Config, logger logging.Logger) (*Oracle, error) {
	if len(cfg.Command) == 0 || strings.TrimSpace(cfg.Command[0]) == "" {
		return nil, errors.New(errors.ErrCodeValidation, "oracle command is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Oracle{cfg: cfg, logger: logging.OrNop(logger)}, nil
}

type enumerateRequest struct {
	Reactants []string `json:"reactants"`
	Products  []string `json:"products"`
}

type enumerateResponse struct {
	Class    string            `json:"class"`
	Variants []json.RawMessage `json:"variants"`
}

type resolveRequest struct {
	Variant json.RawMessage `json:"variant"`
}

type resolveResponse struct {
	Reactants []string `json:"reactants"`
	Products  []string `json:"products"`
}

type smilesRequest struct {
	InChI string `json:"inchi"`
}

type smilesResponse struct {
	Smiles string `json:"smiles"`
}

// Enumerate asks the command for the reaction class and the variants.  The
// raw JSON of each variant becomes its payload.
func (o *Oracle) Enumerate(ctx context.Context, reactants, products []string) (stereo.Enumeration, error) {
	var resp enumerateResponse
	if err := o.call(ctx, CmdEnumerate, enumerateRequest{Reactants: reactants, Products: products}, &resp); err != nil {
		return stereo.Enumeration{}, err
	}
	variants := resp.Variants
	return stereo.Enumeration{
		Class: resp.Class,
		Variants: func(yield func(stereo.Variant) bool) {
			for i, raw := range variants {
				if !yield(stereo.Variant{Index: i, Payload: raw}) {
					return
				}
			}
		},
	}, nil
}

// ResolveSides sends the variant payload back and returns the resolved sides.
func (o *Oracle) ResolveSides(ctx context.Context, v stereo.Variant) ([]string, []string, error) {
	raw, err := payload(v)
	if err != nil {
		return nil, nil, err
	}
	var resp resolveResponse
	if err := o.call(ctx, CmdResolve, resolveRequest{Variant: raw}, &resp); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeVariantConversion, "variant conversion failed")
	}
	if len(resp.Reactants) == 0 || len(resp.Products) == 0 {
		return nil, nil, errors.New(errors.ErrCodeVariantConversion, "variant resolved to an empty side")
	}
	return resp.Reactants, resp.Products, nil
}

// Smiles renders id through the command.
func (o *Oracle) Smiles(ctx context.Context, id string) (string, error) {
	var resp smilesResponse
	if err := o.call(ctx, CmdSmiles, smilesRequest{InChI: id}, &resp); err != nil {
		return "", err
	}
	return resp.Smiles, nil
}

func payload(v stereo.Variant) (json.RawMessage, error) {
	switch p := v.Payload.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode variant payload")
		}
		return b, nil
	}
}

func (o *Oracle) call(ctx context.Context, sub string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode oracle request")
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	args := append(append([]string{}, o.cfg.Command[1:]...), sub)
	cmd := exec.CommandContext(ctx, o.cfg.Command[0], args...)
	cmd.Stdin = bytes.NewReader(body)
	if len(o.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), o.cfg.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	o.logger.Debug("oracle call",
		logging.String("subcommand", sub),
		logging.Duration("elapsed", time.Since(start)),
		logging.Bool("ok", runErr == nil))

	if runErr != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.Wrap(runErr, errors.ErrCodeTimeout, "oracle call timed out").
				WithDetail(sub)
		}
		return errors.Wrap(runErr, errors.ErrCodeOracleProcessFailed, "oracle process failed").
			WithDetail(strings.TrimSpace(stderr.String()))
	}
	if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decode oracle response").
			WithDetail(sub)
	}
	return nil
}
