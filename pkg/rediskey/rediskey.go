package rediskey

import "fmt"

// Key namespaces (global convention across services)
const (
	EmailDomainPrefix = "emaildomain"
	TrustScorePrefix  = "trust:score"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildEmailDomainKey returns "emaildomain:{domain}"
func BuildEmailDomainKey(domain string) string {
	return NamespaceKey(EmailDomainPrefix, domain)
}

// BuildTrustScoreKey returns "trust:score:{organizationID}"
func BuildTrustScoreKey(organizationID string) string {
	return NamespaceKey(TrustScorePrefix, organizationID)
}
