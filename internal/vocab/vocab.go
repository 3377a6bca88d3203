// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vocab holds the ordered phrase and keyword lists used by the
// key-finding and entity extractors. The built-in lists can be replaced
// per list from a YAML file.
package vocab

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Vocabulary groups the three ordered lists. Order matters: extractor
// output and aggregate tie-breaks follow declaration order.
type Vocabulary struct {
	KeyPhrases []string `json:"key_phrases" yaml:"key_phrases"`
	Datasets   []string `json:"datasets" yaml:"datasets"`
	Methods    []string `json:"methods" yaml:"methods"`
}

var defaultKeyPhrases = []string{
	"we propose",
	"we introduce",
	"our approach",
	"our method",
	"we demonstrate",
	"outperforms",
	"achieves state-of-the-art",
}

var defaultDatasets = []string{
	"ImageNet", "CIFAR-10", "CIFAR-100", "MNIST", "COCO", "VOC", "Cityscapes",
	"IMDB", "SQuAD", "GLUE", "SuperGLUE", "WMT", "Penn Treebank",
	"MovieLens", "Netflix", "Kaggle", "UC Irvine", "UCI",
	"WordNet", "ConceptNet", "DBpedia", "Freebase",
	"LFW", "CelebA", "CASIA-WebFace", "MegaFace",
	"KITTI", "WAYMO", "nuScenes", "Apolloscape",
	"BERT", "RoBERTa", "GPT-2", "GPT-3", "T5",
}

var defaultMethods = []string{
	"CNN", "Convolutional Neural Network", "RNN", "Recurrent Neural Network",
	"LSTM", "Long Short-Term Memory", "GRU", "Gated Recurrent Unit",
	"Transformer", "Attention", "Self-Attention", "Multi-Head Attention",
	"ResNet", "Residual Network", "DenseNet", "VGG", "Inception", "Xception",
	"GAN", "Generative Adversarial Network", "VAE", "Variational Autoencoder",
	"BERT", "RoBERTa", "GPT", "T5", "BART", "XLNet",
	"Adam", "SGD", "RMSprop", "Adagrad", "Momentum",
	"Batch Normalization", "Layer Normalization", "Dropout",
	"Reinforcement Learning", "Q-Learning", "DQN", "PPO", "SAC",
	"Support Vector Machine", "SVM", "Random Forest", "Gradient Boosting", "XGBoost", "LightGBM",
	"K-Means", "PCA", "Principal Component Analysis", "t-SNE",
	"Backpropagation", "Gradient Descent", "Cross-Entropy", "Softmax",
	"U-Net", "YOLO", "SSD", "Mask R-CNN", "Faster R-CNN",
}

// Default returns a fresh copy of the built-in vocabulary.
func Default() Vocabulary {
	return Vocabulary{
		KeyPhrases: append([]string(nil), defaultKeyPhrases...),
		Datasets:   append([]string(nil), defaultDatasets...),
		Methods:    append([]string(nil), defaultMethods...),
	}
}

// Load reads a vocabulary file. A list missing from the file keeps its
// built-in value; a list present in the file replaces it entirely.
func Load(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("reading vocabulary %s: %w", path, err)
	}
	var file Vocabulary
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Vocabulary{}, fmt.Errorf("parsing vocabulary %s: %w", path, err)
	}

	v := Default()
	if file.KeyPhrases != nil {
		v.KeyPhrases = file.KeyPhrases
	}
	if file.Datasets != nil {
		v.Datasets = file.Datasets
	}
	if file.Methods != nil {
		v.Methods = file.Methods
	}
	if err := v.Validate(); err != nil {
		return Vocabulary{}, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return v, nil
}

// LoadOrDefault loads path when it is set and returns the defaults otherwise.
func LoadOrDefault(path string) (Vocabulary, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate rejects blank and duplicate entries within a list.
func (v Vocabulary) Validate() error {
	lists := []struct {
		name    string
		entries []string
	}{
		{"key_phrases", v.KeyPhrases},
		{"datasets", v.Datasets},
		{"methods", v.Methods},
	}
	for _, l := range lists {
		seen := make(map[string]bool, len(l.entries))
		for i, e := range l.entries {
			if strings.TrimSpace(e) == "" {
				return fmt.Errorf("%s[%d] is blank", l.name, i)
			}
			key := strings.ToLower(e)
			if seen[key] {
				return fmt.Errorf("%s: duplicate entry %q", l.name, e)
			}
			seen[key] = true
		}
	}
	return nil
}
