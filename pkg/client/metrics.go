package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Handshake outcome labels.
const (
	resultOK                = "ok"
	resultAttestationFetch  = "attestation_fetch"
	resultAttestationVerify = "attestation_invalid"
	resultKeyExchange       = "key_exchange"
	resultSessionKey        = "session_key_malformed"
)

var handshakesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "enclavekit",
		Subsystem: "client",
		Name:      "handshakes_total",
		Help:      "Secure channel handshake attempts by result.",
	},
	[]string{"result"},
)
