/*
 * Copyright 2025 The Jumpstarter Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package grpc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
)

type SecurityMode string

type ServiceRole string

const (
	SecurityModeNone SecurityMode = "none"
	SecurityModeMTLS SecurityMode = "mtls"

	// RoleExporter serves the exporter services.
	RoleExporter ServiceRole = "exporter"
	// RoleClient dials an exporter.
	RoleClient ServiceRole = "client"
)

// TLSConfig names the PEM files used for mTLS. Relative paths resolve
// against SecurityConfig.CertDir.
type TLSConfig struct {
	CertFile     string `json:"cert_file" yaml:"cert_file"`
	KeyFile      string `json:"key_file" yaml:"key_file"`
	CAFile       string `json:"ca_file" yaml:"ca_file"`
	ClientCAFile string `json:"client_ca_file,omitempty" yaml:"client_ca_file,omitempty"`
}

type SecurityConfig struct {
	Mode       SecurityMode `json:"mode" yaml:"mode"`
	CertDir    string       `json:"cert_dir" yaml:"cert_dir"`
	ServerName string       `json:"server_name,omitempty" yaml:"server_name,omitempty"`
	Role       ServiceRole  `json:"role,omitempty" yaml:"role,omitempty"`
	TLS        TLSConfig    `json:"tls" yaml:"tls"`
}

// SecurityProvider supplies transport credentials for both ends of a
// connection.
type SecurityProvider interface {
	GetClientCredentials(ctx context.Context) (grpc.DialOption, error)
	GetServerCredentials(ctx context.Context) (grpc.ServerOption, error)
	Close() error
}

// NoSecurityProvider implements SecurityProvider with no security (development only).
type NoSecurityProvider struct {
	logger logger.Logger
}

func (*NoSecurityProvider) GetClientCredentials(context.Context) (grpc.DialOption, error) {
	return grpc.WithTransportCredentials(insecure.NewCredentials()), nil
}

func (*NoSecurityProvider) GetServerCredentials(context.Context) (grpc.ServerOption, error) {
	return grpc.Creds(insecure.NewCredentials()), nil
}

func (*NoSecurityProvider) Close() error {
	return nil
}

// MTLSProvider implements SecurityProvider with mutual TLS.
type MTLSProvider struct {
	config      *SecurityConfig
	clientCreds credentials.TransportCredentials
	serverCreds credentials.TransportCredentials
	needsClient bool
	needsServer bool
	logger      logger.Logger
}

// NewMTLSProvider creates a new MTLSProvider with the given configuration.
func NewMTLSProvider(config *SecurityConfig, log logger.Logger) (*MTLSProvider, error) {
	if config == nil {
		return nil, errSecurityConfigRequired
	}

	if config.TLS.CertFile == "" || config.TLS.KeyFile == "" || config.TLS.CAFile == "" {
		log.Error().Msg("mTLS mode requires tls.cert_file, tls.key_file, and tls.ca_file")

		return nil, fmt.Errorf("%w: missing required TLS file paths in config", errSecurityConfigRequired)
	}

	if err := NewCertificateManager(config).ValidateCertificates(); err != nil {
		return nil, err
	}

	provider := &MTLSProvider{config: config, logger: log}
	if err := provider.setCredentialNeeds(); err != nil {
		return nil, err
	}

	log.Info().
		Str("role", string(config.Role)).
		Bool("needsClient", provider.needsClient).
		Bool("needsServer", provider.needsServer).
		Msg("Initializing mTLS provider")

	if err := provider.loadCredentials(); err != nil {
		return nil, err
	}

	return provider, nil
}

func (p *MTLSProvider) setCredentialNeeds() error {
	switch p.config.Role {
	case RoleExporter, "":
		p.needsServer = true
	case RoleClient:
		p.needsClient = true
	default:
		return fmt.Errorf("%w: %s", errInvalidServiceRole, p.config.Role)
	}

	return nil
}

func (p *MTLSProvider) loadCredentials() error {
	var err error

	if p.needsClient {
		p.clientCreds, err = loadClientCredentials(p.config, p.logger)
		if err != nil {
			return fmt.Errorf("%w: %w", errFailedToLoadClientCreds, err)
		}
	}

	if p.needsServer {
		p.serverCreds, err = loadServerCredentials(p.config, p.logger)
		if err != nil {
			return fmt.Errorf("%w: %w", errFailedToLoadServerCreds, err)
		}
	}

	return nil
}

func (*MTLSProvider) Close() error {
	return nil
}

func loadClientCredentials(config *SecurityConfig, log logger.Logger) (credentials.TransportCredentials, error) {
	certPath := resolvePath(config.CertDir, config.TLS.CertFile)
	keyPath := resolvePath(config.CertDir, config.TLS.KeyFile)
	caPath := resolvePath(config.CertDir, config.TLS.CAFile)

	log.Debug().
		Str("certPath", certPath).
		Str("keyPath", keyPath).
		Str("caPath", caPath).
		Msg("Loading client certificate")

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToLoadClientCert, err)
	}

	caCert, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToReadCACert, err)
	}

	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("%w: %s", errFailedToAppendCACert, caPath)
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caPool,
		ServerName:   config.ServerName,
		MinVersion:   tls.VersionTLS13,
	}), nil
}

func loadServerCredentials(config *SecurityConfig, log logger.Logger) (credentials.TransportCredentials, error) {
	certPath := resolvePath(config.CertDir, config.TLS.CertFile)
	keyPath := resolvePath(config.CertDir, config.TLS.KeyFile)

	clientCaPath := config.TLS.ClientCAFile
	if clientCaPath == "" {
		clientCaPath = config.TLS.CAFile
	}

	clientCaPath = resolvePath(config.CertDir, clientCaPath)

	log.Debug().
		Str("certPath", certPath).
		Str("keyPath", keyPath).
		Str("clientCaPath", clientCaPath).
		Msg("Loading server certificate")

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToLoadServerCert, err)
	}

	clientCaCert, err := os.ReadFile(clientCaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToReadClientCACert, err)
	}

	clientCaPool := x509.NewCertPool()
	if !clientCaPool.AppendCertsFromPEM(clientCaCert) {
		return nil, fmt.Errorf("%w: %s", errFailedToAppendClientCACert, clientCaPath)
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    clientCaPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS13,
	}), nil
}

func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) || dir == "" {
		return path
	}

	return filepath.Join(dir, path)
}

func (p *MTLSProvider) GetClientCredentials(_ context.Context) (grpc.DialOption, error) {
	if !p.needsClient {
		return nil, errServiceNotClient
	}

	return grpc.WithTransportCredentials(p.clientCreds), nil
}

func (p *MTLSProvider) GetServerCredentials(_ context.Context) (grpc.ServerOption, error) {
	if !p.needsServer {
		return nil, errServiceNotServer
	}

	return grpc.Creds(p.serverCreds), nil
}

// NewSecurityProvider creates the appropriate security provider based on mode.
// A nil config or empty mode means no transport security.
func NewSecurityProvider(_ context.Context, config *SecurityConfig, log logger.Logger) (SecurityProvider, error) {
	if config == nil || config.Mode == "" {
		log.Warn().Msg("SECURITY WARNING: no security mode configured, using insecure transport")

		return &NoSecurityProvider{logger: log}, nil
	}

	switch SecurityMode(strings.ToLower(string(config.Mode))) {
	case SecurityModeNone:
		log.Info().Msg("Using no security (explicitly configured)")

		return &NoSecurityProvider{logger: log}, nil
	case SecurityModeMTLS:
		log.Info().Str("certDir", config.CertDir).Msg("Initializing mTLS security provider")

		provider, err := NewMTLSProvider(config, log)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errFailedToCreateMTLSProvider, err)
		}

		return provider, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownSecurityMode, config.Mode)
	}
}
