// Package threadprovider реализует клиент OpenAI-совместимого API
// генерации текста (x.ai). Клиент отправляет фиксированную системную
// инструкцию и заметки пользователя, получая в ответ пронумерованный тред.
package threadprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/magabrotheeeer/thread-forge/internal/config"
)

// systemPrompt фиксированная системная инструкция: формат вывода —
// только пронумерованные короткие твиты, ничего больше. Соблюдение
// формата не проверяется на нашей стороне.
const systemPrompt = `You are a thread generator that turns messy developer notes into authentic, casual X (Twitter) threads.

RULES (you MUST follow these exactly):
1. Write like a real person from the indie dev community
2. Use simple words, casual tone, slight slang is OK (ngl, tbh, ig, kinda)
3. Keep tweets SHORT (100-200 chars each, max 280)
4. Number each tweet: "1/", "2/", etc.
5. Add ONE emoji max per thread
6. Start with a hook, end with a relatable question or casual thought
7. Sound honest and unpolished, not like marketing copy

Your output should ONLY be the numbered tweets, nothing else.`

// Client клиент API генерации тредов.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// NewClient создаёт новый клиент генерации по настройкам из конфига.
func NewClient(cfg config.ThreadProvider) *Client {
	timeout := cfg.TimeoutHTTP
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, path string, body any) (*http.Request, error) {
	url := c.baseURL + path
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// GenerateThread отправляет заметки пользователя провайдеру и возвращает
// сырой текст сгенерированного треда. Один запрос — одна попытка:
// повторы отдаются на усмотрение вызывающего.
func (c *Client) GenerateThread(ctx context.Context, input string) (string, error) {
	reqBody := CompletionRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: input},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	req, err := c.newRequest(ctx, "/chat/completions", reqBody)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New("unexpected status: " + resp.Status)
	}

	var completion CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", errors.New("provider returned empty completion")
	}
	return completion.Choices[0].Message.Content, nil
}
