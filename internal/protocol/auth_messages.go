package protocol

import "github.com/rvult/riftnet/internal/wire"

// RegisterRequestMessage is §4.9 Register's input.
type RegisterRequestMessage struct {
	Username string
	Email    string
	Password string
	Confirm  string
}

func EncodeRegisterRequest(m RegisterRequestMessage) []byte {
	e := wire.NewEncoder(wire.MsgRegisterRequest)
	e.PutString(m.Username)
	e.PutString(m.Email)
	e.PutString(m.Password)
	e.PutString(m.Confirm)
	return e.Bytes()
}

func DecodeRegisterRequest(dec *wire.Decoder) (RegisterRequestMessage, error) {
	m := RegisterRequestMessage{
		Username: dec.String(),
		Email:    dec.String(),
		Password: dec.String(),
		Confirm:  dec.String(),
	}
	return m, dec.Err()
}

// RegisterResultCode mirrors the outcomes §4.9 Register can produce.
type RegisterResultCode uint8

const (
	RegisterSuccess RegisterResultCode = iota
	RegisterUsernameTaken
	RegisterEmailTaken
	RegisterWeakPassword
	RegisterPasswordMismatch
	RegisterInternalError
)

// RegisterResponseMessage is §4.9 Register's output.
type RegisterResponseMessage struct {
	Result   RegisterResultCode
	UserID   string
	Username string
}

func EncodeRegisterResponse(m RegisterResponseMessage) []byte {
	e := wire.NewEncoder(wire.MsgRegisterResponse)
	e.PutUint8(uint8(m.Result))
	e.PutString(m.UserID)
	e.PutString(m.Username)
	return e.Bytes()
}

func DecodeRegisterResponse(dec *wire.Decoder) (RegisterResponseMessage, error) {
	m := RegisterResponseMessage{
		Result:   RegisterResultCode(dec.Uint8()),
		UserID:   dec.String(),
		Username: dec.String(),
	}
	return m, dec.Err()
}

// LoginRequestMessage is §4.9 Login's input. Identifier containing "@" is
// treated as an email lookup, otherwise a username lookup.
type LoginRequestMessage struct {
	Identifier string
	Password   string
	IP         string
}

func EncodeLoginRequest(m LoginRequestMessage) []byte {
	e := wire.NewEncoder(wire.MsgLoginRequest)
	e.PutString(m.Identifier)
	e.PutString(m.Password)
	e.PutString(m.IP)
	return e.Bytes()
}

func DecodeLoginRequest(dec *wire.Decoder) (LoginRequestMessage, error) {
	m := LoginRequestMessage{
		Identifier: dec.String(),
		Password:   dec.String(),
		IP:         dec.String(),
	}
	return m, dec.Err()
}

// LoginResultCode mirrors the outcomes §4.9 Login can produce.
type LoginResultCode uint8

const (
	LoginSuccess LoginResultCode = iota
	LoginInvalidCredentials
	LoginRateLimited
	LoginInternalError
)

// LoginResponseMessage is §4.9 Login's output.
type LoginResponseMessage struct {
	Result         LoginResultCode
	Token          string
	UserID         string
	Username       string
	RetryAfterSecs uint32
}

func EncodeLoginResponse(m LoginResponseMessage) []byte {
	e := wire.NewEncoder(wire.MsgLoginResponse)
	e.PutUint8(uint8(m.Result))
	e.PutString(m.Token)
	e.PutString(m.UserID)
	e.PutString(m.Username)
	e.PutUint32(m.RetryAfterSecs)
	return e.Bytes()
}

func DecodeLoginResponse(dec *wire.Decoder) (LoginResponseMessage, error) {
	m := LoginResponseMessage{
		Result:         LoginResultCode(dec.Uint8()),
		Token:          dec.String(),
		UserID:         dec.String(),
		Username:       dec.String(),
		RetryAfterSecs: dec.Uint32(),
	}
	return m, dec.Err()
}

// TokenValidationRequestMessage is §4.9 ValidateToken's input.
type TokenValidationRequestMessage struct {
	Token string
}

func EncodeTokenValidationRequest(m TokenValidationRequestMessage) []byte {
	e := wire.NewEncoder(wire.MsgTokenValidationRequest)
	e.PutString(m.Token)
	return e.Bytes()
}

func DecodeTokenValidationRequest(dec *wire.Decoder) (TokenValidationRequestMessage, error) {
	m := TokenValidationRequestMessage{Token: dec.String()}
	return m, dec.Err()
}

// TokenValidationResponseMessage is §4.9 ValidateToken's output.
type TokenValidationResponseMessage struct {
	IsValid    bool
	UserID     string
	Username   string
	ExpiryUnix int64
}

func EncodeTokenValidationResponse(m TokenValidationResponseMessage) []byte {
	e := wire.NewEncoder(wire.MsgTokenValidationResponse)
	e.PutBool(m.IsValid)
	e.PutString(m.UserID)
	e.PutString(m.Username)
	e.PutUint64(uint64(m.ExpiryUnix))
	return e.Bytes()
}

func DecodeTokenValidationResponse(dec *wire.Decoder) (TokenValidationResponseMessage, error) {
	m := TokenValidationResponseMessage{
		IsValid:    dec.Bool(),
		UserID:     dec.String(),
		Username:   dec.String(),
		ExpiryUnix: int64(dec.Uint64()),
	}
	return m, dec.Err()
}
