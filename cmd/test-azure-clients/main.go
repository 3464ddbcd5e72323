package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/internal/ai"
	"github.com/fisiocore/backend/internal/azure"
)

// Smoke tester for the Azure clients. Run it against real credentials before
// a deployment to confirm the OpenAI deployment answers and the report
// container accepts uploads.
func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	openaiEndpoint := os.Getenv("AZURE_OPENAI_ENDPOINT")
	openaiKey := os.Getenv("AZURE_OPENAI_API_KEY")
	openaiDeployment := os.Getenv("AZURE_OPENAI_DEPLOYMENT")

	storageAccountName := os.Getenv("AZURE_STORAGE_ACCOUNT_NAME")
	storageAccountKey := os.Getenv("AZURE_STORAGE_ACCOUNT_KEY")

	if storageAccountName == "" || storageAccountKey == "" {
		logger.Fatal("Missing Azure Storage credentials. Set AZURE_STORAGE_ACCOUNT_NAME and AZURE_STORAGE_ACCOUNT_KEY")
	}

	ctx := context.Background()

	if openaiEndpoint == "" || openaiKey == "" || openaiDeployment == "" {
		logger.Info("Azure OpenAI credentials not set, skipping completion test")
	} else {
		logger.Info("=== Testing Azure OpenAI client ===")
		if err := testCompletionClient(ctx, openaiEndpoint, openaiKey, openaiDeployment, logger); err != nil {
			logger.Error("OpenAI client test failed", zap.Error(err))
		} else {
			logger.Info("OpenAI client test passed")
		}
	}

	logger.Info("=== Testing Azure Blob Storage client ===")
	if err := testBlobStorageClient(ctx, storageAccountName, storageAccountKey, logger); err != nil {
		logger.Error("Blob storage client test failed", zap.Error(err))
	} else {
		logger.Info("Blob storage client test passed")
	}

	logger.Info("=== All tests completed ===")
}

func testCompletionClient(ctx context.Context, endpoint, apiKey, deployment string, logger *zap.Logger) error {
	client, err := ai.NewClient(endpoint, apiKey, deployment, logger)
	if err != nil {
		return fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String("Você é um assistente clínico de fisioterapia."),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String("Responda apenas: 'Conexão confirmada.'"),
				},
			},
		},
	}

	response, err := client.Complete(ctx, messages)
	if err != nil {
		return fmt.Errorf("chat completion failed: %w", err)
	}

	logger.Info("OpenAI response received",
		zap.String("response", response),
		zap.Int("response_length", len(response)),
	)

	return nil
}

func testBlobStorageClient(ctx context.Context, accountName, accountKey string, logger *zap.Logger) error {
	containerName := os.Getenv("AZURE_STORAGE_REPORT_CONTAINER")
	if containerName == "" {
		containerName = "analysis-reports"
	}

	client, err := azure.NewBlobStorageClient(accountName, accountKey, containerName, logger)
	if err != nil {
		return fmt.Errorf("failed to create Blob Storage client: %w", err)
	}

	testPDFData := []byte("%PDF-1.4\nTest PDF content")
	testFilename := fmt.Sprintf("smoke-test-%d.pdf", time.Now().Unix())

	logger.Info("Testing PDF upload", zap.String("filename", testFilename))

	blobName, err := client.UploadPDF(ctx, testFilename, testPDFData)
	if err != nil {
		return fmt.Errorf("PDF upload failed: %w", err)
	}

	logger.Info("PDF uploaded successfully", zap.String("blob_name", blobName))

	downloadedPDF, err := client.DownloadPDF(ctx, blobName)
	if err != nil {
		return fmt.Errorf("PDF download failed: %w", err)
	}

	if string(downloadedPDF) != string(testPDFData) {
		return fmt.Errorf("downloaded PDF doesn't match uploaded PDF")
	}

	logger.Info("PDF downloaded and verified successfully",
		zap.Int("size_bytes", len(downloadedPDF)),
	)

	return nil
}
