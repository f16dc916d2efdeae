// Package entity 定义领域实体
package entity

import (
	"fmt"
	"strings"
)

// Feature 可计量的功能类型
type Feature string

const (
	FeatureAnalyseVideo    Feature = "analyse-video"
	FeatureTranscription   Feature = "transcription"
	FeatureTitleGeneration Feature = "title-generations"
	FeatureImageGeneration Feature = "image-generation"
)

// ResourceKey 计费单元标识：(owner, resource)
type ResourceKey struct {
	OwnerID    string `json:"owner_id"`
	ResourceID string `json:"resource_id"`
}

// NewResourceKey 创建资源键
func NewResourceKey(ownerID, resourceID string) ResourceKey {
	return ResourceKey{OwnerID: strings.TrimSpace(ownerID), ResourceID: strings.TrimSpace(resourceID)}
}

// Validate 校验两个分量都非空
func (k ResourceKey) Validate() error {
	if k.OwnerID == "" {
		return fmt.Errorf("resource key: owner id is required")
	}
	if k.ResourceID == "" {
		return fmt.Errorf("resource key: resource id is required")
	}
	return nil
}

func (k ResourceKey) String() string {
	return k.OwnerID + ":" + k.ResourceID
}

// ArtifactResourceID 生成产物（标题/图片）的资源 ID：videoID/artifactID
func ArtifactResourceID(videoID, artifactID string) string {
	return videoID + "/" + artifactID
}

// SplitArtifactResourceID 拆分产物资源 ID
func SplitArtifactResourceID(resourceID string) (videoID, artifactID string, ok bool) {
	idx := strings.LastIndex(resourceID, "/")
	if idx <= 0 || idx == len(resourceID)-1 {
		return "", "", false
	}
	return resourceID[:idx], resourceID[idx+1:], true
}
