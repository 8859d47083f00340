package storage

import (
	"context"
	"fmt"
	"io"

	"edupresent/internal/render"
)

// ObjectResolver 用 MinIO 对象实现渲染层的文件解析协作方：
// 内容块里存的对象键在这里换成字节与 MIME 类型。
type ObjectResolver struct {
	client *Client
}

// NewObjectResolver 构造 ObjectResolver。
func NewObjectResolver(client *Client) *ObjectResolver {
	return &ObjectResolver{client: client}
}

// Resolve 读取对象内容。对象不存在时返回 render.ErrFileNotFound，
// 由各投影器按自己的策略降级。
func (r *ObjectResolver) Resolve(ctx context.Context, ref string) ([]byte, string, error) {
	obj, err := r.client.GetObject(ctx, ref)
	if err != nil {
		if IsNoSuchKey(err) || IsNoSuchBucket(err) {
			return nil, "", fmt.Errorf("object %q: %w", ref, render.ErrFileNotFound)
		}
		return nil, "", err
	}
	defer obj.Close()

	// minio 的 GetObject 是惰性的，错误要到 Stat/Read 才暴露。
	info, err := obj.Stat()
	if err != nil {
		if IsNoSuchKey(err) || IsNoSuchBucket(err) {
			return nil, "", fmt.Errorf("object %q: %w", ref, render.ErrFileNotFound)
		}
		return nil, "", fmt.Errorf("stat object %q: %w", ref, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("read object %q: %w", ref, err)
	}

	return data, info.ContentType, nil
}
