package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sellerdash/backend/internal/interfaces/http/dto"
)

// SwaggerProtection restricts the API documentation to the allowed IPs or CIDR
// ranges. An empty list allows every client.
func SwaggerProtection(allowed []string) gin.HandlerFunc {
	var ips []net.IP
	var nets []*net.IPNet
	for _, entry := range allowed {
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				nets = append(nets, network)
			}
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			ips = append(ips, ip)
		}
	}

	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}
		if !isIPAllowed(net.ParseIP(c.ClientIP()), ips, nets) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Access to API documentation is restricted", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

func isIPAllowed(ip net.IP, ips []net.IP, nets []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
