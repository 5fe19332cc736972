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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

const (
	certManagerPerms = 0700
)

// CertificateManager checks the files a SecurityConfig points at.
type CertificateManager struct {
	config *SecurityConfig
}

func NewCertificateManager(config *SecurityConfig) *CertificateManager {
	return &CertificateManager{config: config}
}

func (cm *CertificateManager) EnsureCertificateDirectory() error {
	return os.MkdirAll(cm.config.CertDir, certManagerPerms)
}

// ValidateCertificates reports every configured TLS file that does not exist.
func (cm *CertificateManager) ValidateCertificates() error {
	required := []string{cm.config.TLS.CertFile, cm.config.TLS.KeyFile, cm.config.TLS.CAFile}
	if cm.config.TLS.ClientCAFile != "" {
		required = append(required, cm.config.TLS.ClientCAFile)
	}

	var missing []string

	for _, file := range required {
		path := resolvePath(cm.config.CertDir, file)

		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, path)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", errMissingCerts, strings.Join(missing, ", "))
	}

	return nil
}
