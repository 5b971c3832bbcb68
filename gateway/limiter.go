package gateway

import "golang.org/x/time/rate"

// NewLimiter 每秒 rps 次请求的令牌桶；rps <= 0 表示不限速，返回 nil。
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
