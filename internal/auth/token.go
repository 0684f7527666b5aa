package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingCredentials = errors.New("missing API key or secret")
	ErrMissingIdentity    = errors.New("identity is required")
	ErrRoomNotGranted     = errors.New("token does not grant room join")
	ErrInvalidToken       = errors.New("invalid access token")
)

// VideoGrant is the room permission block carried by an access token.
type VideoGrant struct {
	RoomJoin bool   `json:"roomJoin,omitempty"`
	Room     string `json:"room,omitempty"`
}

// Claims defines the data stored inside an access token. The API key is the
// issuer and the participant identity is the subject.
type Claims struct {
	Name  string      `json:"name,omitempty"`
	Video *VideoGrant `json:"video,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the participant identity carried by the token.
func (c *Claims) Identity() string {
	return c.Subject
}

// AccessToken builds a signed room join token.
type AccessToken struct {
	apiKey    string
	apiSecret string
	identity  string
	name      string
	grant     *VideoGrant
	validFor  time.Duration
	now       func() time.Time
}

// NewAccessToken starts a token signed with the given API key pair.
func NewAccessToken(apiKey, apiSecret string) *AccessToken {
	return &AccessToken{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		validFor:  6 * time.Hour,
		now:       time.Now,
	}
}

func (t *AccessToken) SetIdentity(identity string) *AccessToken {
	t.identity = identity
	return t
}

func (t *AccessToken) SetName(name string) *AccessToken {
	t.name = name
	return t
}

func (t *AccessToken) SetValidFor(d time.Duration) *AccessToken {
	t.validFor = d
	return t
}

func (t *AccessToken) AddGrant(grant *VideoGrant) *AccessToken {
	t.grant = grant
	return t
}

// ToJWT signs the token with HS256.
func (t *AccessToken) ToJWT() (string, error) {
	if t.apiKey == "" || t.apiSecret == "" {
		return "", ErrMissingCredentials
	}
	if t.identity == "" {
		return "", ErrMissingIdentity
	}

	now := t.now()
	claims := &Claims{
		Name:  t.name,
		Video: t.grant,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.apiKey,
			Subject:   t.identity,
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.validFor)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(t.apiSecret))
}

// Verifier checks tokens issued for one API key pair.
type Verifier struct {
	apiKey    string
	apiSecret string
}

func NewVerifier(apiKey, apiSecret string) *Verifier {
	return &Verifier{apiKey: apiKey, apiSecret: apiSecret}
}

// Verify parses the token, checks signature, expiry and issuer, and requires
// a room join grant with an identity.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(v.apiSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Identity() == "" {
		return nil, ErrMissingIdentity
	}
	if claims.Video == nil || !claims.Video.RoomJoin || claims.Video.Room == "" {
		return nil, ErrRoomNotGranted
	}
	return claims, nil
}

// ParseUnverified reads the claims of a token without checking its
// signature. Only for display.
func ParseUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
