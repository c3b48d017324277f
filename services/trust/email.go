package trust

import (
	"context"
	"strings"
	"time"

	"teamfit-platform/pkg/dns"
	"teamfit-platform/pkg/errutil"
	"teamfit-platform/pkg/rediskey"

	"go.uber.org/zap"
)

const emailDomainCacheTTL = 24 * time.Hour

var disposableDomains = map[string]struct{}{
	"tempmail.com":      {},
	"guerrillamail.com": {},
	"10minutemail.com":  {},
	"throwaway.email":   {},
	"temp-mail.org":     {},
	"fakeinbox.com":     {},
	"mailinator.com":    {},
	"maildrop.cc":       {},
	"yopmail.com":       {},
}

// IsDisposableEmail reports whether the address belongs to a known
// throwaway provider.
func IsDisposableEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	_, ok := disposableDomains[domain]
	return ok
}

type EmailValidation struct {
	Email       string `json:"email"`
	Domain      string `json:"domain"`
	Disposable  bool   `json:"disposable"`
	DomainValid bool   `json:"domain_valid"`
}

// ValidateEmail screens an address before it is accepted for email
// verification: known throwaway providers are rejected outright, then the
// domain must publish MX records. MX results are cached in redis so repeat
// signups from the same domain skip the lookup.
func (s *Service) ValidateEmail(ctx context.Context, email string) (*EmailValidation, error) {
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 {
		return nil, errutil.BadRequest("invalid email address")
	}
	domain := strings.ToLower(email[at+1:])

	result := &EmailValidation{
		Email:  email,
		Domain: domain,
	}

	if _, ok := disposableDomains[domain]; ok {
		result.Disposable = true
		return result, nil
	}

	result.DomainValid = s.domainHasMX(ctx, domain)
	return result, nil
}

func (s *Service) domainHasMX(ctx context.Context, domain string) bool {
	key := rediskey.BuildEmailDomainKey(domain)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
			return cached == "ok"
		}
	}

	valid := true
	if err := dns.VerifyEmailDomain(domain); err != nil {
		zap.L().Debug("email domain MX check failed", zap.String("domain", domain), zap.Error(err))
		valid = false
	}

	if s.redis != nil {
		state := "ok"
		if !valid {
			state = "fail"
		}
		if err := s.redis.Set(ctx, key, state, emailDomainCacheTTL).Err(); err != nil {
			zap.L().Warn("failed to cache email domain check", zap.String("domain", domain), zap.Error(err))
		}
	}

	return valid
}
