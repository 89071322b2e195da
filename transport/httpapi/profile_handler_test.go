package httpapi

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func profileForm(t *testing.T, fields map[string]string, photo []byte) (*bytes.Buffer, string) {
	t.Helper()
	req := require.New(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for key, value := range fields {
		req.NoError(form.WriteField(key, value))
	}
	if photo != nil {
		part, err := form.CreateFormFile("photo", "photo.png")
		req.NoError(err)
		_, err = part.Write(photo)
		req.NoError(err)
	}
	req.NoError(form.Close())
	return &buf, form.FormDataContentType()
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func postProfile(t *testing.T, server *httptest.Server, token string, body *bytes.Buffer, contentType string) (int, map[string]any) {
	t.Helper()
	req := require.New(t)

	request, err := http.NewRequest(http.MethodPost, server.URL+"/profile", body)
	req.NoError(err)
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Content-Type", contentType)

	response, err := http.DefaultClient.Do(request)
	req.NoError(err)
	defer response.Body.Close()

	var decoded map[string]any
	req.NoError(json.NewDecoder(response.Body).Decode(&decoded))
	return response.StatusCode, decoded
}

func Test_Profile_Create_And_View(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	alice := signup(t, server, "alice", "alice@example.com")

	body, contentType := profileForm(t, map[string]string{
		"age": "30", "weight": "65", "height": "170",
	}, tinyPNG(t))
	status, created := postProfile(t, server, alice, body, contentType)
	req.Equal(http.StatusCreated, status)
	req.Equal(float64(30), created["age"])
	req.True(strings.HasPrefix(created["photo"].(string), "/uploads/"))
	req.True(strings.HasSuffix(created["photo"].(string), ".png"))

	// The stored photo is reachable through the public uploads route.
	photo, err := http.Get(server.URL + created["photo"].(string))
	req.NoError(err)
	defer photo.Body.Close()
	req.Equal(http.StatusOK, photo.StatusCode)

	status, viewed := doJSON(t, http.MethodGet, server.URL+"/profile", alice, nil)
	req.Equal(http.StatusOK, status)
	req.Equal(created["photo"], viewed["photo"])
	req.Equal(float64(65), viewed["weight"])
	req.Equal(float64(170), viewed["height"])
}

func Test_Profile_Photo_Is_Optional(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	alice := signup(t, server, "alice", "alice@example.com")

	body, contentType := profileForm(t, map[string]string{
		"age": "30", "weight": "65", "height": "170",
	}, nil)
	status, created := postProfile(t, server, alice, body, contentType)
	req.Equal(http.StatusCreated, status)
	req.Nil(created["photo"])
}

func Test_Profile_Rejects_Non_Image_Photo(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	alice := signup(t, server, "alice", "alice@example.com")

	body, contentType := profileForm(t, map[string]string{
		"age": "30", "weight": "65", "height": "170",
	}, []byte("#!/bin/sh\necho not an image"))
	status, _ := postProfile(t, server, alice, body, contentType)
	req.Equal(http.StatusBadRequest, status)
}

func Test_Profile_Rejects_Bad_Fields(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	alice := signup(t, server, "alice", "alice@example.com")

	body, contentType := profileForm(t, map[string]string{
		"age": "-5", "weight": "65", "height": "170",
	}, nil)
	status, _ := postProfile(t, server, alice, body, contentType)
	req.Equal(http.StatusBadRequest, status)
}

func Test_Profile_View_Before_Create(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	alice := signup(t, server, "alice", "alice@example.com")

	status, _ := doJSON(t, http.MethodGet, server.URL+"/profile", alice, nil)
	req.Equal(http.StatusNotFound, status)
}
