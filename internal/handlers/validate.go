// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"blurbpress/internal/models"
)

// Validation limits for request fields.
const (
	maxTitleLen      = 300
	maxBodyLen       = 100_000
	maxMetaKeyLen    = 100
	maxMetaValueLen  = 10_000
	maxExternalIDLen = 200
)

var (
	flavorRule     = validation.In(flavorNames()...).Error("must be a known flavor")
	capabilityRule = validation.In(
		string(models.CapViewer), string(models.CapCommenter), string(models.CapAuthor),
	).Error("must be IViewer, ICommenter or IAuthor")
)

func flavorNames() []any {
	names := make([]any, len(models.Flavors))
	for i, f := range models.Flavors {
		names[i] = string(f)
	}
	return names
}

// createInput is the body of POST /api/blurbs.
type createInput struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Flavor string `json:"flavor"`
	Public bool   `json:"public"`
}

func (in *createInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	return validation.ValidateStruct(in,
		validation.Field(&in.Title, validation.Required, validation.RuneLength(1, maxTitleLen)),
		validation.Field(&in.Body, validation.RuneLength(0, maxBodyLen)),
		validation.Field(&in.Flavor, validation.Required, flavorRule),
	)
}

// textInput is the body of posts and edits.
type textInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (in *textInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	return validation.ValidateStruct(in,
		validation.Field(&in.Title, validation.RuneLength(0, maxTitleLen)),
		validation.Field(&in.Body, validation.Required, validation.RuneLength(1, maxBodyLen)),
	)
}

// permitInput is the body of POST /api/shares/{shareID}/permissions.
type permitInput struct {
	Role         string   `json:"role"`
	Flavor       string   `json:"flavor"`
	Capabilities []string `json:"capabilities"`
}

func (in *permitInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Role, validation.Required, validation.RuneLength(1, maxExternalIDLen)),
		validation.Field(&in.Flavor, validation.Required, flavorRule),
		validation.Field(&in.Capabilities, validation.Required, validation.Each(capabilityRule)),
	)
}

func (in *permitInput) capabilities() models.CapabilitySet {
	caps := make([]models.Capability, len(in.Capabilities))
	for i, c := range in.Capabilities {
		caps[i] = models.Capability(c)
	}
	return models.NewCapabilitySet(caps...)
}

// metaInput is the body of PUT /api/shares/{shareID}/meta.
type metaInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (in *metaInput) Validate() error {
	in.Key = strings.TrimSpace(in.Key)
	return validation.ValidateStruct(in,
		validation.Field(&in.Key, validation.Required, validation.RuneLength(1, maxMetaKeyLen)),
		validation.Field(&in.Value, validation.RuneLength(0, maxMetaValueLen)),
	)
}

// loginInput is the body of POST /api/session. Code is only needed for
// roles with 2FA enabled.
type loginInput struct {
	ExternalID string `json:"external_id"`
	Password   string `json:"password"`
	Code       string `json:"code"`
}

func (in *loginInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.ExternalID, validation.Required, validation.RuneLength(1, maxExternalIDLen)),
		validation.Field(&in.Password, validation.Required),
		validation.Field(&in.Code, validation.When(in.Code != "", totpCodeRules...)),
	)
}

var totpCodeRules = []validation.Rule{validation.Length(6, 6), is.Digit}

// codeInput is the body of POST /api/session/totp/verify.
type codeInput struct {
	Code string `json:"code"`
}

func (in *codeInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Code, append([]validation.Rule{validation.Required}, totpCodeRules...)...),
	)
}
