/*
 * Copyright 2024 MediScan Client Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
)

// Payload is a request body together with its content type.
type Payload interface {
	encode() (io.Reader, string, error)
}

type jsonPayload struct{ v any }

// JSON encodes v as an application/json body.
func JSON(v any) Payload { return jsonPayload{v: v} }

func (p jsonPayload) encode() (io.Reader, string, error) {
	body, err := json.Marshal(p.v)
	if err != nil {
		return nil, "", fmt.Errorf("marshal request: %w", err)
	}
	return bytes.NewReader(body), "application/json", nil
}

type formPayload struct{ values url.Values }

// Form encodes values as an application/x-www-form-urlencoded body.
func Form(values url.Values) Payload { return formPayload{values: values} }

func (p formPayload) encode() (io.Reader, string, error) {
	return strings.NewReader(p.values.Encode()), "application/x-www-form-urlencoded", nil
}

type multipartPayload struct {
	field    string
	filename string
	content  io.Reader
}

// Multipart sends content as a single file part named field.
func Multipart(field, filename string, content io.Reader) Payload {
	return multipartPayload{field: field, filename: filename, content: content}
}

func (p multipartPayload) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(p.filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     p.field,
		"filename": filepath.Base(p.filename),
	}))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, p.content); err != nil {
		return nil, "", fmt.Errorf("write multipart part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// Response is a successful (2xx) response, passed through unchanged.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
