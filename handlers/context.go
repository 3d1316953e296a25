// Package handlers, HTTP endpoint'lerini barındırır.
//
// Handler'lar ince tutulur: request parse → service çağrısı → response.
// İş kuralları service katmanındadır; handler yalnızca HTTP çevirisi yapar.
package handlers

// contextKey, context.WithValue çakışmalarını önlemek için özel tip.
// string yerine özel tip kullanılır — başka paketlerin key'leriyle çakışmaz.
type contextKey string

// UserContextKey, auth middleware'ın doğrulanmış kullanıcıyı koyduğu key.
const UserContextKey contextKey = "user"
