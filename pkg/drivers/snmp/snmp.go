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

// Package snmp provides a power switch driver for PDUs controlled over SNMPv3.
package snmp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/drivers/power"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
)

const (
	clientClass = "jumpstarter_driver_snmp.client.SNMPServerClient"

	defaultPort    = 161
	defaultOID     = "1.3.6.1.4.1.13742.6.4.1.2.1.2.1"
	defaultTimeout = 5.0

	stateOff = 0
	stateOn  = 1
)

var (
	errMissingHost     = errors.New("host is required")
	errMissingUser     = errors.New("user is required")
	errMissingAuthKey  = errors.New("auth_key is required when auth_protocol is set")
	errMissingPrivKeys = errors.New("auth_key and priv_key are required when priv_protocol is set")
	errUnknownAuth     = errors.New("unknown auth protocol")
	errUnknownPriv     = errors.New("unknown privacy protocol")
	errSetFailed       = errors.New("snmp set failed")
)

// Config is the config section of an "snmp-power" instance.
type Config struct {
	Host         string  `yaml:"host"`
	Port         uint16  `yaml:"port"`
	User         string  `yaml:"user"`
	Plug         int     `yaml:"plug"`
	OID          string  `yaml:"oid"`
	AuthProtocol string  `yaml:"auth_protocol"`
	AuthKey      string  `yaml:"auth_key"`
	PrivProtocol string  `yaml:"priv_protocol"`
	PrivKey      string  `yaml:"priv_key"`
	Timeout      float64 `yaml:"timeout"`
}

// client is the part of gosnmp.GoSNMP the driver uses.
type client interface {
	Set(pdus []gosnmp.SnmpPDU) (*gosnmp.SnmpPacket, error)
	Close() error
}

type connector func(ctx context.Context) (client, error)

// Server switches one outlet of a PDU by writing 1 or 0 to <oid>.<plug>.
type Server struct {
	*driver.Base

	host    string
	oid     string
	logger  logger.Logger
	connect connector
}

// New validates cfg and returns a driver exporting on, off and cycle.
func New(cfg Config, log logger.Logger, opts ...driver.BaseOption) (*Server, error) {
	params, err := securityParameters(&cfg)
	if err != nil {
		return nil, err
	}

	oid := cfg.OID
	if oid == "" {
		oid = defaultOID
	}

	opts = append([]driver.BaseOption{driver.WithClient(clientClass)}, opts...)

	s := &Server{
		Base:   driver.NewBase(opts...),
		host:   cfg.Host,
		oid:    strings.TrimPrefix(oid, ".") + "." + strconv.Itoa(cfg.Plug),
		logger: log.WithComponent("snmp"),
	}

	s.connect = func(ctx context.Context) (client, error) {
		return dial(ctx, &cfg, params)
	}

	power.Export(s.Base, s)

	return s, nil
}

func (s *Server) On(ctx context.Context) error {
	return s.set(ctx, stateOn)
}

func (s *Server) Off(ctx context.Context) error {
	return s.set(ctx, stateOff)
}

func (s *Server) set(ctx context.Context, state int) error {
	s.logger.Info().Str("host", s.host).Str("oid", s.oid).Int("state", state).Msg("Sending power command")

	c, err := s.connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: connect %s: %w", errSetFailed, s.host, err)
	}

	defer func() {
		if err := c.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Failed to close SNMP connection")
		}
	}()

	result, err := c.Set([]gosnmp.SnmpPDU{{Name: s.oid, Type: gosnmp.Integer, Value: state}})
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFailed, err)
	}

	if result.Error != gosnmp.NoError {
		return fmt.Errorf("%w: %s at index %d", errSetFailed, result.Error, result.ErrorIndex)
	}

	return nil
}

type goSNMPClient struct {
	*gosnmp.GoSNMP
}

func (c goSNMPClient) Close() error {
	if c.Conn == nil {
		return nil
	}

	return c.Conn.Close()
}

func dial(ctx context.Context, cfg *Config, params *gosnmp.UsmSecurityParameters) (client, error) {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	g := &gosnmp.GoSNMP{
		Target:             cfg.Host,
		Port:               port,
		Transport:          "udp",
		Version:            gosnmp.Version3,
		Context:            ctx,
		Timeout:            time.Duration(timeout * float64(time.Second)),
		Retries:            1,
		MaxOids:            gosnmp.MaxOids,
		SecurityModel:      gosnmp.UserSecurityModel,
		MsgFlags:           msgFlags(params),
		SecurityParameters: params.Copy(),
	}

	if err := g.Connect(); err != nil {
		return nil, err
	}

	return goSNMPClient{GoSNMP: g}, nil
}

func msgFlags(params *gosnmp.UsmSecurityParameters) gosnmp.SnmpV3MsgFlags {
	switch {
	case params.PrivacyProtocol != gosnmp.NoPriv:
		return gosnmp.AuthPriv
	case params.AuthenticationProtocol != gosnmp.NoAuth:
		return gosnmp.AuthNoPriv
	default:
		return gosnmp.NoAuthNoPriv
	}
}

func securityParameters(cfg *Config) (*gosnmp.UsmSecurityParameters, error) {
	if cfg.Host == "" {
		return nil, errMissingHost
	}

	if net.ParseIP(cfg.Host) == nil {
		if _, err := net.LookupHost(cfg.Host); err != nil {
			return nil, fmt.Errorf("resolve %s: %w", cfg.Host, err)
		}
	}

	if cfg.User == "" {
		return nil, errMissingUser
	}

	params := &gosnmp.UsmSecurityParameters{
		UserName:               cfg.User,
		AuthenticationProtocol: gosnmp.NoAuth,
		PrivacyProtocol:        gosnmp.NoPriv,
	}

	switch strings.ToUpper(cfg.AuthProtocol) {
	case "", "NONE":
	case "MD5":
		params.AuthenticationProtocol = gosnmp.MD5
	case "SHA":
		params.AuthenticationProtocol = gosnmp.SHA
	case "SHA256":
		params.AuthenticationProtocol = gosnmp.SHA256
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownAuth, cfg.AuthProtocol)
	}

	switch strings.ToUpper(cfg.PrivProtocol) {
	case "", "NONE":
	case "DES":
		params.PrivacyProtocol = gosnmp.DES
	case "AES":
		params.PrivacyProtocol = gosnmp.AES
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownPriv, cfg.PrivProtocol)
	}

	if params.PrivacyProtocol != gosnmp.NoPriv {
		if params.AuthenticationProtocol == gosnmp.NoAuth || cfg.AuthKey == "" || cfg.PrivKey == "" {
			return nil, errMissingPrivKeys
		}

		params.PrivacyPassphrase = cfg.PrivKey
	}

	if params.AuthenticationProtocol != gosnmp.NoAuth {
		if cfg.AuthKey == "" {
			return nil, errMissingAuthKey
		}

		params.AuthenticationPassphrase = cfg.AuthKey
	}

	return params, nil
}
