package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/rabota-client/pkg/rabota"
)

// fetchCommand returns the 'fetch' command for calling arbitrary API endpoints.
func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Call an API endpoint and print the response",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "method",
				Usage: "HTTP method (GET|POST)",
				Value: string(rabota.MethodPost),
			},
			&cli.StringSliceFlag{
				Name:    "param",
				Aliases: []string{"p"},
				Usage:   "request parameter as key=value, repeatable; order is kept",
			},
			&cli.BoolFlag{
				Name:  "sign",
				Usage: "sign the request with the application secret",
			},
		},
		Action: fetchAction,
	}
}

func fetchAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("endpoint path is required, e.g. rabota fetch /v4/me.json")
	}

	params, err := parseParams(cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	method := rabota.Method(strings.ToUpper(cmd.String("method")))
	resp, fetchErr := s.client.Fetch(ctx, path, params, method, cmd.Bool("sign"))

	// The call may have refreshed or invalidated the session
	if err := s.persist(ctx); err != nil {
		return errors.Join(fetchErr, err)
	}

	if fetchErr != nil {
		var apiErr *rabota.APIError
		if errors.As(fetchErr, &apiErr) && apiErr.Response != nil {
			writeBody(s, apiErr.Response.Body)
		}
		return fetchErr
	}

	writeBody(s, resp.Body)
	return nil
}

// parseParams turns key=value pairs into ordered parameters.
func parseParams(pairs []string) (rabota.Params, error) {
	var params rabota.Params
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return rabota.Params{}, fmt.Errorf("invalid parameter %q (expected key=value)", pair)
		}
		params.Set(key, value)
	}
	return params, nil
}

// writeBody prints JSON bodies indented and anything else as is.
func writeBody(s *session, body []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		s.printf("%s\n", bytes.TrimRight(body, "\n"))
		return
	}
	s.printf("%s\n", buf.Bytes())
}
