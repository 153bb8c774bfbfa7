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

package transport

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/osprey-dcs/dp-jal-sub012/internal/config"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
)

// Dial opens a grpc.ClientConn to cfg.Connection's host/port, applying
// TLS or plaintext credentials and the configured message-size and
// keep-alive knobs.
func Dial(ctx context.Context, cfg config.Connection) (*grpc.ClientConn, error) {
	var opts []grpc.DialOption

	if cfg.TLS.Enabled {
		var creds credentials.TransportCredentials
		if cfg.TLS.Default {
			creds = credentials.NewTLS(nil)
		} else {
			var err error
			creds, err = credentials.NewClientTLSFromFile(cfg.TLS.TrustedCertsPath, "")
			if err != nil {
				return nil, dperr.Wrap(dperr.KindConfigInvalid, "loading TLS trusted certs", err)
			}
		}
		opts = append(opts, grpc.WithTransportCredentials(creds))
	} else if cfg.Transport.PlaintextOk {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		return nil, dperr.New(dperr.KindConfigInvalid, "TLS disabled and plaintext not permitted by configuration")
	}

	if cfg.Transport.MaxMessageBytes > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(int(cfg.Transport.MaxMessageBytes)),
			grpc.MaxCallSendMsgSize(int(cfg.Transport.MaxMessageBytes)),
		))
	}

	target := fmt.Sprintf("%s:%d", cfg.HostUrl, cfg.Port)
	conn, err := grpc.DialContext(ctx, target, opts...)
	if err != nil {
		return nil, dperr.Wrap(dperr.KindTransportError, fmt.Sprintf("dialing %s", target), err)
	}
	return conn, nil
}
