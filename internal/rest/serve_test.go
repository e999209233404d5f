// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mlnoga/pixfilter/internal/imgio"
	"github.com/mlnoga/pixfilter/internal/plane"
)

func init() { gin.SetMode(gin.TestMode) }

// Builds a multipart request with a PNG of the given image and extra form fields
func newRequest(t *testing.T, path string, img *plane.Image, fields map[string]string) *http.Request {
	t.Helper()
	body := bytes.Buffer{}
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if img != nil {
		part, err := w.CreateFormFile("image", "in.png")
		if err != nil {
			t.Fatal(err)
		}
		if err := imgio.Encode(part, img, imgio.FormatPNG, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func flatRGB(v float32) *plane.Image {
	img := plane.NewImage(plane.RGB, 6, 5)
	for i := range img.Channels {
		img.Channels[i] = plane.NewFilled(6, 5, v)
	}
	return img
}

func serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewRouter(io.Discard).ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) *plane.Image {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	img, _, err := imgio.Decode(rec.Body, 0)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestPing(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "pong") {
		t.Errorf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Errorf("missing request id")
	}
}

func TestIndex(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<form") {
		t.Errorf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestPostCorrelate(t *testing.T) {
	req := newRequest(t, "/api/v1/correlate", flatRGB(200), map[string]string{
		"kernel":  "3 3 0\n0 1 0\n1 -4 1\n0 1 0\n",
		"padding": "replicate",
	})
	rec := serve(req)
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type %q; want image/png", ct)
	}
	img := decodeResponse(t, rec)
	for c, ch := range img.Channels {
		for i, d := range ch.Data {
			if d != 0 {
				t.Fatalf("channel %d out[%d]=%f; want 0", c, i, d)
			}
		}
	}
}

func TestPostCorrelateFormatError(t *testing.T) {
	rec := serve(newRequest(t, "/api/v1/correlate", flatRGB(1), map[string]string{"kernel": "3 3 0\n1 2\n"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d; want 400", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp["error"], "line 2") || resp["requestId"] == "" {
		t.Errorf("response=%v", resp)
	}

	rec = serve(newRequest(t, "/api/v1/correlate", flatRGB(1), map[string]string{"kernel": "1 1 0\n1\n", "norm": "bogus"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad norm status=%d; want 400", rec.Code)
	}

	rec = serve(newRequest(t, "/api/v1/correlate", flatRGB(1), map[string]string{"kernel": "200000 200000 0\n1 2\n"}))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "too large") {
		t.Errorf("huge kernel status=%d body=%s; want 400 too large", rec.Code, rec.Body.String())
	}
}

func TestPostPoint(t *testing.T) {
	rec := serve(newRequest(t, "/api/v1/point", flatRGB(200), map[string]string{"format": "bmp"}))
	if ct := rec.Header().Get("Content-Type"); ct != "image/bmp" {
		t.Errorf("content type %q; want image/bmp", ct)
	}
	img := decodeResponse(t, rec)
	if d := img.Channels[1].Data[0]; d != 111 {
		t.Errorf("sample=%f; want 111", d)
	}

	rec = serve(newRequest(t, "/api/v1/point", flatRGB(200), map[string]string{"mid": "abc"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad mid status=%d; want 400", rec.Code)
	}
}

func TestPostLuma(t *testing.T) {
	img := decodeResponse(t, serve(newRequest(t, "/api/v1/luma", flatRGB(100), nil)))
	if d := img.Channels[0].Data[0]; d < 199 || d > 201 {
		t.Errorf("sample=%f; want about 200", d)
	}

	gray := plane.NewImage(plane.Gray, 4, 4)
	rec := serve(newRequest(t, "/api/v1/luma", gray, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("gray luma status=%d; want 400", rec.Code)
	}
}

func TestPostStats(t *testing.T) {
	rec := serve(newRequest(t, "/api/v1/stats", flatRGB(42), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Width != 6 || resp.Height != 5 || resp.Order != plane.RGB || len(resp.Channels) != 3 {
		t.Errorf("response=%+v", resp)
	}
	if resp.Channels[2].Mean != 42 || resp.FileName != "in.png" {
		t.Errorf("channel stats=%+v file=%s", resp.Channels[2], resp.FileName)
	}

	rec = serve(newRequest(t, "/api/v1/stats", nil, map[string]string{"x": "y"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing image status=%d; want 400", rec.Code)
	}
}
