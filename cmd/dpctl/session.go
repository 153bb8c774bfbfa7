// Copyright 2025 Osprey DCS Contributors. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osprey-dcs/dp-jal-sub012/internal/config"
	"github.com/osprey-dcs/dp-jal-sub012/internal/ingestfacade"
	"github.com/osprey-dcs/dp-jal-sub012/internal/queryfacade"
	"github.com/osprey-dcs/dp-jal-sub012/internal/telemetry/log"
	"github.com/osprey-dcs/dp-jal-sub012/internal/transport"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/ingestpb"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/querypb"
)

// session is the narrow slice of ingestfacade.Session / queryfacade.Session
// that open/close/shutdown/status drive, selected by --side.
type session interface {
	State() fmt.Stringer
	Open(ctx context.Context) error
	CloseStream(ctx context.Context) error
	ShutdownNow() error
}

// newIngestFileCmd's provider flag is shared by --side=ingestion here;
// query has no registration step.
func newSideCmd(use, short string, run func(ctx context.Context, side, provider string) error) *cobra.Command {
	var side, provider string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), side, provider)
		},
	}
	cmd.Flags().StringVar(&side, "side", "ingestion", `which facade to exercise: "ingestion" or "query"`)
	cmd.Flags().StringVar(&provider, "provider", "dpctl", "provider name to register (ingestion side only)")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return newSideCmd("status", "Open then immediately close a session to check connectivity", runStatus)
}

func newOpenCmd() *cobra.Command {
	return newSideCmd("open", "Open a session and report the assigned identity", runOpen)
}

func newCloseCmd() *cobra.Command {
	return newSideCmd("close", "Open a session, then close it gracefully, draining in-flight work", runClose)
}

func newShutdownCmd() *cobra.Command {
	return newSideCmd("shutdown", "Open a session, then shut it down immediately, discarding in-flight work", runShutdown)
}

func runOpen(ctx context.Context, side, provider string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := dialSide(ctx, cfg, side, provider)
	if err != nil {
		return err
	}
	if err := sess.Open(ctx); err != nil {
		return err
	}
	fmt.Printf("%s session: %s\n", side, sess.State())
	return sess.CloseStream(ctx)
}

func runClose(ctx context.Context, side, provider string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := dialSide(ctx, cfg, side, provider)
	if err != nil {
		return err
	}
	if err := sess.Open(ctx); err != nil {
		return err
	}
	if err := sess.CloseStream(ctx); err != nil {
		return err
	}
	fmt.Printf("%s session closed\n", side)
	return nil
}

func runShutdown(ctx context.Context, side, provider string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := dialSide(ctx, cfg, side, provider)
	if err != nil {
		return err
	}
	if err := sess.Open(ctx); err != nil {
		return err
	}
	if err := sess.ShutdownNow(); err != nil {
		return err
	}
	fmt.Printf("%s session shut down\n", side)
	return nil
}

func dialSide(ctx context.Context, cfg config.Config, side, provider string) (session, error) {
	conn, err := transport.Dial(ctx, cfg.Connection)
	if err != nil {
		return nil, err
	}
	logger := log.New(cfg.Logging.Enabled, cfg.Logging.Level)

	switch side {
	case "ingestion":
		sess := ingestfacade.New(cfg, ingestpb.NewIngestionServiceClient(conn), logger, nil)
		return &ingestionSideAdapter{sess: sess, provider: provider}, nil
	case "query":
		sess := queryfacade.New(cfg, querypb.NewQueryServiceClient(conn), logger)
		return &querySideAdapter{sess: sess}, nil
	default:
		return nil, fmt.Errorf("unrecognized --side %q (want ingestion or query)", side)
	}
}

func runStatus(ctx context.Context, side, provider string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := dialSide(ctx, cfg, side, provider)
	if err != nil {
		return err
	}
	if err := sess.Open(ctx); err != nil {
		return err
	}
	fmt.Printf("%s session: %s\n", side, sess.State())
	return sess.ShutdownNow()
}

// ingestionSideAdapter and querySideAdapter narrow each facade's
// richer API (ProviderUID-returning Open, response-returning
// CloseStream) to the uniform session interface the open/close/status
// commands share.
type ingestionSideAdapter struct {
	sess     *ingestfacade.Session
	provider string
}

func (a *ingestionSideAdapter) State() fmt.Stringer { return a.sess.State() }
func (a *ingestionSideAdapter) Open(ctx context.Context) error {
	_, err := a.sess.Open(ctx, ingestfacade.ProviderRegistration{Name: a.provider})
	return err
}
func (a *ingestionSideAdapter) CloseStream(ctx context.Context) error {
	_, err := a.sess.CloseStream(ctx)
	return err
}
func (a *ingestionSideAdapter) ShutdownNow() error { return a.sess.ShutdownNow() }

type querySideAdapter struct {
	sess *queryfacade.Session
}

func (a *querySideAdapter) State() fmt.Stringer          { return a.sess.State() }
func (a *querySideAdapter) Open(ctx context.Context) error { return a.sess.Open(ctx) }
func (a *querySideAdapter) CloseStream(ctx context.Context) error {
	return a.sess.ShutdownSoft(ctx)
}
func (a *querySideAdapter) ShutdownNow() error { return a.sess.ShutdownNow() }
