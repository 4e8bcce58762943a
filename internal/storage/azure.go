package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/appendblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// Azure writes to Azure Storage append blobs.
type Azure struct {
	client *azblob.Client
}

// NewAzure parses an Azure Storage connection string. No request is sent.
func NewAzure(connectionString string) (*Azure, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("storage: azure connection string is required")
	}
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: azure client: %w", err)
	}
	return &Azure{client: client}, nil
}

func (a *Azure) appendBlob(container, name string) *appendblob.Client {
	return a.client.ServiceClient().NewContainerClient(container).NewAppendBlobClient(name)
}

func (a *Azure) EnsureContainer(ctx context.Context, container string) error {
	_, err := a.client.CreateContainer(ctx, container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("azure create container %s: %w", container, err)
	}
	return nil
}

func (a *Azure) Exists(ctx context.Context, container, name string) (bool, error) {
	_, err := a.appendBlob(container, name).GetProperties(ctx, nil)
	if err == nil {
		return true, nil
	}
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return false, nil
	}
	if bloberror.HasCode(err, bloberror.ContainerNotFound) {
		return false, fmt.Errorf("%w: %s", ErrContainerNotFound, container)
	}
	return false, fmt.Errorf("azure properties %s: %w", name, err)
}

func (a *Azure) CreateEmpty(ctx context.Context, container, name string) error {
	_, err := a.appendBlob(container, name).Create(ctx, &appendblob.CreateOptions{
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
		},
	})
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
			return nil
		}
		return fmt.Errorf("azure create %s: %w", name, err)
	}
	return nil
}

func (a *Azure) AppendBlock(ctx context.Context, container, name string, data []byte) error {
	_, err := a.appendBlob(container, name).AppendBlock(ctx, streaming.NopCloser(bytes.NewReader(data)), nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return fmt.Errorf("%w: %s", ErrBlobNotFound, name)
		}
		return fmt.Errorf("azure append %s: %w", name, err)
	}
	return nil
}

func (a *Azure) ListBlobs(ctx context.Context, container, prefix string) ([]BlobInfo, error) {
	var result []BlobInfo
	pager := a.client.NewListBlobsFlatPager(container, &azblob.ListBlobsFlatOptions{Prefix: to.Ptr(prefix)})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("azure list %s: %w", prefix, err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			info := BlobInfo{Name: *item.Name}
			if props := item.Properties; props != nil {
				if props.ContentLength != nil {
					info.Size = *props.ContentLength
				}
				if props.LastModified != nil {
					info.LastModified = *props.LastModified
				}
			}
			result = append(result, info)
		}
	}
	return result, nil
}

func (a *Azure) ReadBlob(ctx context.Context, container, name string) ([]byte, error) {
	resp, err := a.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, name)
		}
		return nil, fmt.Errorf("azure download %s: %w", name, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
