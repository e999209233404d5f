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
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mlnoga/pixfilter/internal/filter"
	"github.com/mlnoga/pixfilter/internal/imgio"
	"github.com/mlnoga/pixfilter/internal/kernel"
	"github.com/mlnoga/pixfilter/internal/plane"
	"github.com/mlnoga/pixfilter/internal/stats"
	"github.com/mlnoga/pixfilter/internal/yiq"
	"github.com/mlnoga/pixfilter/web"
)

// Upper bound for uploaded images held in memory during multipart parsing
const MaxUploadMB = 64

const requestIDKey = "requestID"

// Serves the REST API on the given address, e.g. ":8080"
func Serve(addr string, logWriter io.Writer) error {
	return NewRouter(logWriter).Run(addr)
}

// Creates the router with all routes. Requests are logged to logWriter
func NewRouter(logWriter io.Writer) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = MaxUploadMB << 20
	r.Use(gin.LoggerWithWriter(logWriter), gin.Recovery(), requestID(logWriter))

	r.GET("/", getIndex)
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/correlate", postCorrelate)
			v1.POST("/point", postPoint)
			v1.POST("/luma", postLuma)
			v1.POST("/stats", postStats)
		}
	}
	return r
}

// Tags each request with a fresh id, returned in the X-Request-Id header
func requestID(logWriter io.Writer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(requestIDKey, id)
		c.Header("X-Request-Id", id)
		start := time.Now()
		c.Next()
		if c.Request.Method == http.MethodPost {
			fmt.Fprintf(logWriter, "%s: %s %s done after %v\n", id, c.Request.Method, c.Request.URL.Path, time.Since(start))
		}
	}
}

func getIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// Responds with a JSON error. Input errors map to 400, everything else to 500
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if isInputError(err) {
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "requestId": c.GetString(requestIDKey)})
}

type inputError struct{ error }

func (e inputError) Unwrap() error { return e.error }

func isInputError(err error) bool {
	var ie inputError
	return errors.As(err, &ie) || kernel.IsFormatError(err) ||
		errors.Is(err, yiq.ErrNotColor) || errors.Is(err, imgio.ErrUnknownFormat)
}

// Reads the uploaded image from the multipart field "image"
func readImage(c *gin.Context) (*plane.Image, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, inputError{fmt.Errorf("missing image: %w", err)}
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := imgio.Decode(f, 0)
	if err != nil {
		return nil, inputError{fmt.Errorf("%s: %w", fh.Filename, err)}
	}
	img.FileName = fh.Filename
	return img, nil
}

// Encodes the image in the format given by the "format" field, PNG by default
func writeImage(c *gin.Context, img *plane.Image) {
	format, err := imgio.ParseFormat(c.DefaultPostForm("format", "png"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	quality, err := strconv.Atoi(c.DefaultPostForm("quality", "95"))
	if err != nil || quality < 1 || quality > 100 {
		abortWithError(c, inputError{fmt.Errorf("bad quality '%s'", c.PostForm("quality"))})
		return
	}
	c.Header("Content-Type", format.ContentType())
	c.Status(http.StatusOK)
	if err := imgio.Encode(c.Writer, img, format, quality); err != nil {
		c.Error(err)
	}
}

// Reads an optional curve from the "mid" and "max" fields
func readCurve(c *gin.Context, def filter.Curve) (filter.Curve, error) {
	curve := def
	for _, f := range []struct {
		name string
		dst  *float32
	}{{"mid", &curve.Mid}, {"max", &curve.Max}} {
		s := c.PostForm(f.name)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return curve, inputError{fmt.Errorf("bad %s '%s'", f.name, s)}
		}
		*f.dst = float32(v)
	}
	return curve, nil
}

func postCorrelate(c *gin.Context) {
	k, err := kernel.ParseString(c.PostForm("kernel"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	norm, err := filter.ParseNormMode(c.PostForm("norm"))
	if err != nil {
		abortWithError(c, inputError{err})
		return
	}
	pad, err := filter.ParsePadding(c.PostForm("padding"))
	if err != nil {
		abortWithError(c, inputError{err})
		return
	}
	img, err := readImage(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	res, err := filter.CorrelateImage(img, k, pad, norm)
	if err != nil {
		abortWithError(c, err)
		return
	}
	writeImage(c, res)
}

func postPoint(c *gin.Context) {
	curve, err := readCurve(c, filter.Curve8Bit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	img, err := readImage(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	res, err := filter.PointImage(img, curve)
	if err != nil {
		abortWithError(c, err)
		return
	}
	writeImage(c, res)
}

func postLuma(c *gin.Context) {
	curve, err := readCurve(c, filter.CurveLuma)
	if err != nil {
		abortWithError(c, err)
		return
	}
	img, err := readImage(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	res, err := yiq.FilterLumaWith(img, curve.Apply)
	if err != nil {
		abortWithError(c, err)
		return
	}
	writeImage(c, res)
}

type statsResponse struct {
	RequestID string              `json:"requestId"`
	FileName  string              `json:"fileName"`
	Width     int                 `json:"width"`
	Height    int                 `json:"height"`
	Order     plane.ChannelOrder  `json:"order"`
	Channels  []*stats.BasicStats `json:"channels"`
}

func postStats(c *gin.Context) {
	img, err := readImage(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, statsResponse{
		RequestID: c.GetString(requestIDKey),
		FileName:  img.FileName,
		Width:     img.Width(),
		Height:    img.Height(),
		Order:     img.Order,
		Channels:  stats.CalcImageStats(img),
	})
}
