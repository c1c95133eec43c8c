package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CertPair points at a discovered TLS key/certificate pair.
type CertPair struct {
	CertFile string
	KeyFile  string
}

// DiscoverCerts looks for mkcert-style localhost certificates
// (localhost*.pem with a matching localhost*-key.pem) in dir, then in
// its parent. Returns nil when no usable pair exists; the caller falls
// back to plain HTTP. Discovery failures are never fatal.
func DiscoverCerts(dir string) *CertPair {
	for _, searchDir := range []string{dir, filepath.Join(dir, "..")} {
		pair := findPairIn(searchDir)
		if pair != nil {
			log.Printf("[Config] Found TLS certificates in %s: %s / %s",
				searchDir, filepath.Base(pair.CertFile), filepath.Base(pair.KeyFile))
			return pair
		}
	}
	log.Printf("[Config] No TLS certificates found, running plain HTTP only")
	return nil
}

func findPairIn(dir string) *CertPair {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var keyFile, certFile string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".pem") || !strings.Contains(name, "localhost") {
			continue
		}
		if strings.HasSuffix(name, "-key.pem") {
			keyFile = filepath.Join(dir, name)
		} else {
			certFile = filepath.Join(dir, name)
		}
	}

	if keyFile == "" || certFile == "" {
		return nil
	}
	return &CertPair{CertFile: certFile, KeyFile: keyFile}
}
