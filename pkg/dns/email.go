package dns

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// VerifyEmailDomain checks that the domain of the given address can receive
// mail, i.e. it publishes at least one MX record. It first tries public DNS
// (1.1.1.1 / 8.8.8.8), then falls back to the system resolver.
func VerifyEmailDomain(domain string) error {
	if strings.TrimSpace(domain) == "" {
		return fmt.Errorf("domain cannot be empty")
	}

	host := dns.Fqdn(domain)
	zap.L().Debug("Verifying MX records", zap.String("host", host))

	publicResolvers := []string{"1.1.1.1:53", "8.8.8.8:53"}
	for _, resolver := range publicResolvers {
		if err := queryMXWithResolver(host, resolver); err == nil {
			zap.L().Debug("MX verification success", zap.String("resolver", resolver), zap.String("domain", domain))
			return nil
		}
	}

	// fallback to system resolver
	zap.L().Warn("Falling back to system resolver", zap.String("domain", domain))
	if err := queryMXSystem(domain); err == nil {
		zap.L().Debug("MX verification success (system resolver)", zap.String("domain", domain))
		return nil
	}

	return fmt.Errorf("no MX records found for %s", domain)
}

// queryMXWithResolver uses a specific DNS resolver for the MX lookup
func queryMXWithResolver(hostname, resolver string) error {
	client := &dns.Client{
		Timeout: 3 * time.Second,
	}

	msg := dns.Msg{}
	msg.SetQuestion(hostname, dns.TypeMX)

	resp, _, err := client.Exchange(&msg, resolver)
	if err != nil {
		zap.L().Debug("DNS query failed", zap.String("resolver", resolver), zap.Error(err))
		return err
	}

	for _, ans := range resp.Answer {
		if _, ok := ans.(*dns.MX); ok {
			return nil
		}
	}

	return fmt.Errorf("no MX records found at resolver %s", resolver)
}

// queryMXSystem uses Go's standard net.LookupMX for fallback
func queryMXSystem(domain string) error {
	records, err := net.LookupMX(domain)
	if err != nil {
		return fmt.Errorf("system resolver MX lookup failed: %w", err)
	}

	if len(records) == 0 {
		return fmt.Errorf("no MX records found via system resolver")
	}

	return nil
}
