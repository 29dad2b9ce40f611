package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/coredata/errors"
)

// ObjectStore returns an existing object store bucket.
func (c *Client) ObjectStore(ctx context.Context, bucket string) (jetstream.ObjectStore, error) {
	js, err := c.JetStream()
	if err != nil {
		return nil, err
	}
	store, err := js.ObjectStore(ctx, bucket)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrBucketNotFound) {
			return nil, errors.WrapInvalid(err, "Client", "ObjectStore", "open bucket "+bucket)
		}
		return nil, errors.WrapTransient(err, "Client", "ObjectStore", "open bucket "+bucket)
	}
	return store, nil
}

// CreateObjectStore creates a bucket or returns the existing one.
func (c *Client) CreateObjectStore(ctx context.Context, cfg jetstream.ObjectStoreConfig) (jetstream.ObjectStore, error) {
	js, err := c.JetStream()
	if err != nil {
		return nil, err
	}
	store, err := js.CreateOrUpdateObjectStore(ctx, cfg)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "CreateObjectStore", "create bucket "+cfg.Bucket)
	}
	return store, nil
}

// GetObject reads an object in full. With maxBytes above zero an object whose
// recorded size exceeds it fails with errors.ErrContentTooLarge before any of
// its chunks are fetched.
func (c *Client) GetObject(ctx context.Context, bucket, name string, maxBytes int64) ([]byte, error) {
	store, err := c.ObjectStore(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 {
		info, err := store.GetInfo(ctx, name)
		if err != nil {
			return nil, objectError(err, bucket, name)
		}
		if info.Size > uint64(maxBytes) {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: object is %d bytes, limit %d", errors.ErrContentTooLarge, info.Size, maxBytes),
				"Client", "GetObject", bucket+"/"+name)
		}
	}
	data, err := store.GetBytes(ctx, name)
	if err != nil {
		return nil, objectError(err, bucket, name)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: object is %d bytes, limit %d", errors.ErrContentTooLarge, len(data), maxBytes),
			"Client", "GetObject", bucket+"/"+name)
	}
	return data, nil
}

func objectError(err error, bucket, name string) error {
	if stderrors.Is(err, jetstream.ErrObjectNotFound) {
		return errors.WrapInvalid(ErrObjectNotFound, "Client", "GetObject", bucket+"/"+name)
	}
	return errors.WrapTransient(err, "Client", "GetObject", bucket+"/"+name)
}

// PutObject stores data under name, replacing any previous version.
func (c *Client) PutObject(ctx context.Context, bucket, name string, data []byte) error {
	store, err := c.ObjectStore(ctx, bucket)
	if err != nil {
		return err
	}
	if _, err := store.PutBytes(ctx, name, data); err != nil {
		return errors.WrapTransient(err, "Client", "PutObject", bucket+"/"+name)
	}
	return nil
}
