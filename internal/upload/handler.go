package upload

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"videgrenier-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

const (
	maxPhotoSize = 5 * 1024 * 1024
	uploadFolder = "vide_grenier_products"
)

// Cloudinary signe et pousse les photos produits sur l'API upload de
// Cloudinary.
type Cloudinary struct {
	cloudName string
	apiKey    string
	apiSecret string
	client    *http.Client
}

func NewCloudinary(cfg *config.Config) *Cloudinary {
	return &Cloudinary{
		cloudName: cfg.CloudinaryCloudName,
		apiKey:    cfg.CloudinaryAPIKey,
		apiSecret: cfg.CloudinaryAPISecret,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// sign calcule la signature Cloudinary: SHA-1 des paramètres triés par clé,
// concaténés en query string, suivis du secret d'API.
func (cl *Cloudinary) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	h := sha1.Sum([]byte(strings.Join(pairs, "&") + cl.apiSecret))
	return hex.EncodeToString(h[:])
}

type uploadResult struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (cl *Cloudinary) upload(file *multipart.FileHeader) (*uploadResult, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	params := map[string]string{
		"folder":    uploadFolder,
		"timestamp": timestamp,
	}
	signature := cl.sign(params)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", file.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, err
	}
	_ = writer.WriteField("api_key", cl.apiKey)
	_ = writer.WriteField("timestamp", timestamp)
	_ = writer.WriteField("folder", uploadFolder)
	_ = writer.WriteField("signature", signature)
	if err := writer.Close(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/upload", cl.cloudName)
	req, err := http.NewRequest(http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := cl.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("envoi Cloudinary: %w", err)
	}
	defer resp.Body.Close()

	var result uploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("réponse Cloudinary illisible: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("Cloudinary a refusé l'image: %s", result.Error.Message)
	}

	return &result, nil
}

func (cl *Cloudinary) destroy(publicID string) error {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	params := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}
	signature := cl.sign(params)

	form := url.Values{}
	form.Set("public_id", publicID)
	form.Set("timestamp", timestamp)
	form.Set("api_key", cl.apiKey)
	form.Set("signature", signature)

	endpoint := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/destroy", cl.cloudName)
	resp, err := cl.client.PostForm(endpoint, form)
	if err != nil {
		return fmt.Errorf("suppression Cloudinary: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("réponse Cloudinary illisible: %w", err)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("Cloudinary a répondu: %s", result.Result)
	}

	return nil
}

// POST /api/upload
// Photo produit: image uniquement, 5 Mo maximum.
func UploadPhotoHandler(cl *Cloudinary) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cl.cloudName == "" || cl.apiKey == "" || cl.apiSecret == "" {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Le service d'hébergement d'images n'est pas configuré")
		}

		file, err := c.FormFile("photo")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Le champ 'photo' est obligatoire")
		}

		if file.Size > maxPhotoSize {
			return fiber.NewError(fiber.StatusBadRequest, "La photo ne doit pas dépasser 5 Mo")
		}
		contentType := file.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			return fiber.NewError(fiber.StatusBadRequest, "Seules les images sont acceptées")
		}

		result, err := cl.upload(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "La photo n'a pas pu être hébergée, veuillez réessayer")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":   "Photo hébergée",
			"url":       result.SecureURL,
			"public_id": result.PublicID,
		})
	}
}

// DELETE /api/upload/:publicId
// Le public_id arrive encodé dans l'URL.
func DeletePhotoHandler(cl *Cloudinary) fiber.Handler {
	return func(c *fiber.Ctx) error {
		publicID, err := url.PathUnescape(c.Params("publicId"))
		if err != nil || publicID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "public_id invalide")
		}

		if err := cl.destroy(publicID); err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "La photo n'a pas pu être supprimée")
		}

		return c.JSON(fiber.Map{"message": "Photo supprimée"})
	}
}
