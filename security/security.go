// Package security applies and removes password protection. Documents are
// protected with AES-256, the same password acting as user and owner
// password, and every permission granted.
package security

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/wudi/pdfworks/document"
	"github.com/wudi/pdfworks/errs"
)

const keyLength = 256

// Encrypt protects data with password.
func Encrypt(data []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, errs.Wrap(errs.ErrInvalidParameter, "password is empty", nil)
	}
	conf := model.NewAESConfiguration(password, password, keyLength)
	conf.Permissions = model.PermissionsAll
	conf.ValidationMode = model.ValidationRelaxed

	var buf bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(data), &buf, conf); err != nil {
		return nil, errs.Wrap(errs.ErrInvalidDocument, "encrypt", err)
	}
	return buf.Bytes(), nil
}

// Decrypt removes protection using password. A document protected by an
// owner password only opens with an empty user password, so that is tried
// next. A document that is not encrypted is rewritten unchanged in content.
// A protected document the password does not open is reported as
// errs.ErrInvalidParameter; bytes that do not parse at all as
// errs.ErrInvalidDocument. The result never carries an encryption
// dictionary.
func Decrypt(data []byte, password string) ([]byte, error) {
	out, decErr := decrypt(data, password, password)
	if decErr != nil && password != "" {
		out, decErr = decrypt(data, "", password)
	}
	if decErr != nil {
		var buf bytes.Buffer
		if err := api.Optimize(bytes.NewReader(data), &buf, document.Config()); err == nil {
			out = buf.Bytes()
		} else if !IsEncrypted(data) {
			return nil, errs.Wrap(errs.ErrInvalidDocument, "decrypt", decErr)
		}
	}
	if out == nil || IsEncrypted(out) {
		return nil, errs.Wrap(errs.ErrInvalidParameter, "incorrect password", decErr)
	}
	return out, nil
}

func decrypt(data []byte, userPW, ownerPW string) ([]byte, error) {
	conf := document.Config()
	conf.UserPW = userPW
	conf.OwnerPW = ownerPW
	var buf bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(data), &buf, conf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsEncrypted reports whether data carries an encryption dictionary. The
// trailer and cross-reference stream dictionaries are never encrypted, so
// a byte scan is enough.
func IsEncrypted(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) &&
		bytes.Contains(data, []byte("/Encrypt"))
}
