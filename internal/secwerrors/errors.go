// Package secwerrors implements the typed error taxonomy shared by the
// Security Wallet Server and the Credential-Asset Mapping Server, and the
// JSON exception shape ("errorCode", "whatArg", "extraData") that crosses
// the wire on a failed command.
package secwerrors

import "encoding/json"

// Code is a server-specific error code. SWS and CAMS each define their own
// closed set below; the wire shape is identical for both.
type Code int

// SWS error codes.
const (
	SWSGeneric Code = iota
	SWSUnsupportedCommand
	SWSProtocolError
	SWSBadCommandArgument
	SWSUnknownDocumentType
	SWSUnknownPortfolio
	SWSInvalidDocumentFormat
	SWSImpossibleToLoadPortfolio
	SWSUnknownTag
	SWSDocumentDoNotExist
	SWSIllegalAccess
	SWSUnknownUsageID
	SWSNameAlreadyExists
	SWSNameDoesNotExist
)

// CAMS error codes.
const (
	CAMSGeneric Code = iota
	CAMSUnsupportedCommand
	CAMSProtocolError
	CAMSBadCommandArgument
	CAMSMappingDoesNotExist
	CAMSMappingAlreadyExists
	CAMSMappingInvalid
)

// Error is the single error type used by both servers. ExtraData is
// marshaled verbatim into the wire exception's "extraData" member.
type Error struct {
	Code      Code        `json:"errorCode"`
	WhatArg   string      `json:"whatArg"`
	ExtraData interface{} `json:"extraData,omitempty"`
}

func (e *Error) Error() string {
	return e.WhatArg
}

// ToJSON renders the wire exception payload for a failed command reply.
func (e *Error) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// New builds a bare error with no extra data.
func New(code Code, whatArg string) *Error {
	return &Error{Code: code, WhatArg: whatArg}
}

// WithExtra builds an error carrying a structured extraData payload.
func WithExtra(code Code, whatArg string, extra interface{}) *Error {
	return &Error{Code: code, WhatArg: whatArg, ExtraData: extra}
}

// UnknownPortfolioExtra is the extraData shape for SWSUnknownPortfolio.
type UnknownPortfolioExtra struct {
	PortfolioName string `json:"portfolioName"`
}

// UnknownPortfolio builds the SWS "unknown portfolio" error.
func UnknownPortfolio(name string) *Error {
	return WithExtra(SWSUnknownPortfolio, "Unknown portfolio '"+name+"'", UnknownPortfolioExtra{PortfolioName: name})
}

// NameExtra is the extraData shape for NameAlreadyExists / NameDoesNotExist.
type NameExtra struct {
	Name string `json:"name"`
}

// NameAlreadyExists builds the SWS "name already exists" error.
func NameAlreadyExists(name string) *Error {
	return WithExtra(SWSNameAlreadyExists, "Name '"+name+"' already exists", NameExtra{Name: name})
}

// NameDoesNotExist builds the SWS "name does not exist" error.
func NameDoesNotExist(name string) *Error {
	return WithExtra(SWSNameDoesNotExist, "Name '"+name+"' does not exist", NameExtra{Name: name})
}

// MappingExtra is the extraData shape for the CAMS mapping errors.
type MappingExtra struct {
	AssetID   string `json:"assetId"`
	ServiceID string `json:"serviceId"`
	Protocol  string `json:"protocol"`
}

// MappingDoesNotExist builds the CAMS "mapping does not exist" error.
func MappingDoesNotExist(asset, service, protocol string) *Error {
	return WithExtra(CAMSMappingDoesNotExist, "Mapping does not exist", MappingExtra{AssetID: asset, ServiceID: service, Protocol: protocol})
}

// MappingAlreadyExists builds the CAMS "mapping already exists" error.
func MappingAlreadyExists(asset, service, protocol string) *Error {
	return WithExtra(CAMSMappingAlreadyExists, "Mapping already exists", MappingExtra{AssetID: asset, ServiceID: service, Protocol: protocol})
}

// DocumentDoesNotExist builds the SWS "document does not exist" error.
func DocumentDoesNotExist(id string) *Error {
	return New(SWSDocumentDoNotExist, "Document '"+id+"' does not exist")
}

// IllegalAccess builds the SWS "illegal access" error.
func IllegalAccess(whatArg string) *Error {
	return New(SWSIllegalAccess, whatArg)
}

// UnknownUsageID builds the SWS "unknown usage id" error.
func UnknownUsageID(usage string) *Error {
	return New(SWSUnknownUsageID, "Unknown usage id '"+usage+"'")
}

// UnknownTag builds the SWS "unknown tag" error.
func UnknownTag(tag string) *Error {
	return New(SWSUnknownTag, "Unknown tag '"+tag+"'")
}

// InvalidDocumentFormat builds the SWS "invalid document format" error for
// a specific missing/invalid field.
func InvalidDocumentFormat(field string) *Error {
	return New(SWSInvalidDocumentFormat, "Invalid document format: "+field)
}

// UnknownDocumentType builds the SWS "unknown document type" error.
func UnknownDocumentType(docType string) *Error {
	return New(SWSUnknownDocumentType, "Unknown document type '"+docType+"'")
}

// UnsupportedCommand builds the "unsupported command" error (shared shape,
// caller picks SWSUnsupportedCommand or CAMSUnsupportedCommand).
func UnsupportedCommand(code Code, command string) *Error {
	return New(code, "Unsupported command '"+command+"'")
}

// ProtocolError builds a "malformed request" error (shared shape).
func ProtocolError(code Code, whatArg string) *Error {
	return New(code, whatArg)
}

// BadCommandArgument builds a "bad argument" error (shared shape).
func BadCommandArgument(code Code, whatArg string) *Error {
	return New(code, whatArg)
}

// MappingInvalid builds the CAMS "invalid mapping record" error.
func MappingInvalid(whatArg string) *Error {
	return New(CAMSMappingInvalid, whatArg)
}

// ImpossibleToLoadPortfolio builds the SWS fatal load error.
func ImpossibleToLoadPortfolio(whatArg string) *Error {
	return New(SWSImpossibleToLoadPortfolio, whatArg)
}

// FromError extracts a *Error from a generic error, returning (nil, false)
// if err is not one of ours.
func FromError(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
