package projecthub

import "crypto/tls"

// tlsConfig returns the TLS settings used in prod mode.
// Only TLS 1.2+ with forward secret AEAD suites is offered.
// https://github.com/ssllabs/research/wiki/ssl-and-tls-deployment-best-practices
func tlsConfig(mode Mode) *tls.Config {
	if mode != ProdMode {
		return nil
	}
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP384,
			tls.CurveP256,
		},
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		},
	}
}
