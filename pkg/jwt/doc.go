// Package jwt provides RFC 7519 JSON Web Tokens signed with HMAC-SHA256.
//
// It is a thin layer over github.com/golang-jwt/jwt/v5 that pins the algorithm,
// requires an expiration claim, optionally enforces a maximum token age based on
// the iat claim, and maps provider errors onto a small set of package errors.
//
//	service, err := jwt.NewFromString(secret, jwt.WithMaxAge(30*24*time.Hour))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	token, err := service.Generate(jwt.StandardClaims{
//		Subject:   userID.String(),
//		IssuedAt:  jwt.NewNumericDate(time.Now()),
//		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
//	})
//
//	var claims jwt.StandardClaims
//	if err := service.Parse(token, &claims); err != nil {
//		switch {
//		case errors.Is(err, jwt.ErrExpiredToken):
//		case errors.Is(err, jwt.ErrInvalidSignature):
//		}
//	}
package jwt
