// Command nlc trains and evaluates the sequence-to-sequence correction
// model on a parallel text corpus.
//
// The corpus is a plain text file with one example per line, source and
// target separated by a tab:
//
//	teh quick brown fox<TAB>the quick brown fox
//
// Usage:
//
//	nlc -train train.tsv -dev dev.tsv -size 128 -layers 3 -epochs 10
//	nlc -train train.tsv -dev dev.tsv -checkpoint nlc.ckpt -resume
//	nlc -dev dev.tsv -checkpoint nlc.ckpt -eval-only
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/nlc-ml/nlc/internal/backend/cpu"
	"github.com/nlc-ml/nlc/internal/data"
	"github.com/nlc-ml/nlc/internal/model"
	"github.com/nlc-ml/nlc/internal/tokenizer"
)

type options struct {
	trainPath  string
	devPath    string
	vocabPath  string
	encoding   string
	checkpoint string
	resume     bool
	evalOnly   bool

	size        int
	layers      int
	batchSize   int
	epochs      int
	maxVocab    int
	lr          float64
	lrDecay     float64
	dropout     float64
	maxGradNorm float64
	optimizer   string
	seed        int64
}

func main() {
	log.SetFlags(log.LstdFlags)

	var opts options
	flag.StringVar(&opts.trainPath, "train", "", "training corpus (tab-separated pairs)")
	flag.StringVar(&opts.devPath, "dev", "", "validation corpus (tab-separated pairs)")
	flag.StringVar(&opts.vocabPath, "vocab", "", "character vocabulary file (built from the training corpus when missing)")
	flag.StringVar(&opts.encoding, "encoding", "", "tiktoken encoding name for subword tokenization (default: character-level)")
	flag.StringVar(&opts.checkpoint, "checkpoint", "nlc.ckpt", "checkpoint file")
	flag.BoolVar(&opts.resume, "resume", false, "resume from the checkpoint file")
	flag.BoolVar(&opts.evalOnly, "eval-only", false, "evaluate the checkpoint on -dev and exit")
	flag.IntVar(&opts.size, "size", 128, "hidden state size")
	flag.IntVar(&opts.layers, "layers", 3, "encoder/decoder layer count")
	flag.IntVar(&opts.batchSize, "batch", 32, "batch size")
	flag.IntVar(&opts.epochs, "epochs", 10, "training epochs")
	flag.IntVar(&opts.maxVocab, "max-vocab", 0, "character vocabulary cap (0 = unlimited)")
	flag.Float64Var(&opts.lr, "lr", 0.001, "learning rate")
	flag.Float64Var(&opts.lrDecay, "lr-decay", 0.95, "learning rate decay factor")
	flag.Float64Var(&opts.dropout, "dropout", 0.15, "dropout rate")
	flag.Float64Var(&opts.maxGradNorm, "max-grad-norm", 5.0, "gradient clipping threshold")
	flag.StringVar(&opts.optimizer, "optimizer", "adam", "optimizer (adam or sgd)")
	flag.Int64Var(&opts.seed, "seed", 1, "random seed for batch shuffling")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func run(opts options) error {
	if opts.trainPath == "" && !opts.evalOnly {
		return fmt.Errorf("-train is required unless -eval-only is set")
	}
	if opts.evalOnly && opts.devPath == "" {
		return fmt.Errorf("-eval-only requires -dev")
	}

	tok, trainText, err := buildTokenizer(opts)
	if err != nil {
		return err
	}
	log.Printf("tokenizer: %s, vocabulary size %s", tok.Name(), humanize.Comma(int64(tok.VocabSize())))

	cfg := model.Config{
		VocabSize:       tok.VocabSize(),
		Size:            opts.size,
		NumLayers:       opts.layers,
		MaxGradientNorm: float32(opts.maxGradNorm),
		BatchSize:       opts.batchSize,
		LearningRate:    float32(opts.lr),
		LRDecayFactor:   float32(opts.lrDecay),
		Dropout:         float32(opts.dropout),
		ForwardOnly:     opts.evalOnly,
		Optimizer:       opts.optimizer,
	}

	m, err := model.New(cfg, cpu.New())
	if err != nil {
		return fmt.Errorf("failed to build model: %w", err)
	}
	log.Printf("model: size %d, %d layers, %s parameters",
		opts.size, opts.layers, humanize.Comma(int64(m.NumParams())))

	if opts.resume || opts.evalOnly {
		if err := m.Load(opts.checkpoint); err != nil {
			return fmt.Errorf("failed to load checkpoint: %w", err)
		}
		log.Printf("restored checkpoint %s (step %d, lr %.6f)",
			opts.checkpoint, m.GlobalStep(), m.LearningRate())
	}

	var devBatches []*data.Batch
	if opts.devPath != "" {
		devBatches, err = loadBatches(opts.devPath, tok, opts.batchSize, opts.layers)
		if err != nil {
			return err
		}
	}

	if opts.evalOnly {
		loss := evalLoss(m, devBatches)
		log.Printf("dev loss %.4f", loss)
		return nil
	}

	trainBatches, err := batchesFromText(trainText, tok, opts.batchSize, opts.layers)
	if err != nil {
		return err
	}
	log.Printf("training on %d batches", len(trainBatches))

	return trainLoop(m, trainBatches, devBatches, opts)
}

// buildTokenizer returns the tokenizer plus the raw training text, read
// once so the character vocabulary and the batches share it.
func buildTokenizer(opts options) (tokenizer.Tokenizer, []byte, error) {
	var trainText []byte
	if opts.trainPath != "" {
		var err error
		trainText, err = os.ReadFile(opts.trainPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read training corpus: %w", err)
		}
	}

	if opts.encoding != "" {
		tok, err := tokenizer.NewSubword(opts.encoding)
		if err != nil {
			return nil, nil, err
		}
		return tok, trainText, nil
	}

	if opts.vocabPath != "" {
		if f, err := os.Open(opts.vocabPath); err == nil {
			defer f.Close()
			tok, err := tokenizer.NewCharFromVocab(f)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to load vocabulary %s: %w", opts.vocabPath, err)
			}
			return tok, trainText, nil
		}
	}

	if trainText == nil {
		return nil, nil, fmt.Errorf("need -train or an existing -vocab file to build the vocabulary")
	}

	tok := tokenizer.NewCharFromText(string(trainText), opts.maxVocab)
	if opts.vocabPath != "" {
		f, err := os.Create(opts.vocabPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to write vocabulary %s: %w", opts.vocabPath, err)
		}
		if err := tok.WriteVocab(f); err != nil {
			f.Close()
			return nil, nil, err
		}
		if err := f.Close(); err != nil {
			return nil, nil, err
		}
		log.Printf("wrote vocabulary to %s", opts.vocabPath)
	}
	return tok, trainText, nil
}

func loadBatches(path string, tok tokenizer.Tokenizer, batchSize, layers int) ([]*data.Batch, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", path, err)
	}
	return batchesFromText(text, tok, batchSize, layers)
}

func batchesFromText(text []byte, tok tokenizer.Tokenizer, batchSize, layers int) ([]*data.Batch, error) {
	pairs, err := data.ReadPairs(bytes.NewReader(text), tok)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("corpus contains no usable pairs")
	}
	return data.Batches(pairs, batchSize, layers)
}

func trainLoop(m *model.Model[*cpu.Backend], trainBatches, devBatches []*data.Batch, opts options) error {
	rng := rand.New(rand.NewSource(opts.seed))
	bestLoss := float32(0)
	haveBest := false

	for epoch := 1; epoch <= opts.epochs; epoch++ {
		rng.Shuffle(len(trainBatches), func(i, j int) {
			trainBatches[i], trainBatches[j] = trainBatches[j], trainBatches[i]
		})

		bar := progressbar.NewOptions(len(trainBatches),
			progressbar.OptionSetDescription(fmt.Sprintf("epoch %d/%d", epoch, opts.epochs)),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		var epochLoss, gradNorm float64
		for _, b := range trainBatches {
			gn, loss, _, err := m.Train(b.Source, b.SourceMask, b.Target, b.TargetMask)
			if err != nil {
				return fmt.Errorf("training step failed: %w", err)
			}
			epochLoss += float64(loss)
			gradNorm = float64(gn)
			_ = bar.Add(1)
		}
		trainLoss := epochLoss / float64(len(trainBatches))

		epochLossVal := float32(trainLoss)
		if len(devBatches) > 0 {
			epochLossVal = evalLoss(m, devBatches)
			log.Printf("epoch %d: train loss %.4f, dev loss %.4f, grad norm %.3f, lr %.6f, step %d",
				epoch, trainLoss, epochLossVal, gradNorm, m.LearningRate(), m.GlobalStep())
		} else {
			log.Printf("epoch %d: train loss %.4f, grad norm %.3f, lr %.6f, step %d",
				epoch, trainLoss, gradNorm, m.LearningRate(), m.GlobalStep())
		}

		// Decay the learning rate when the validation loss stops
		// improving; otherwise keep the best checkpoint on disk.
		if haveBest && epochLossVal >= bestLoss {
			m.DecayLearningRate()
			log.Printf("no improvement, decayed lr to %.6f", m.LearningRate())
			continue
		}
		bestLoss = epochLossVal
		haveBest = true
		if err := m.Save(opts.checkpoint); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
	}

	log.Printf("done: best loss %.4f, checkpoint %s", bestLoss, opts.checkpoint)
	return nil
}

func evalLoss(m *model.Model[*cpu.Backend], batches []*data.Batch) float32 {
	var total float64
	for _, b := range batches {
		loss, _ := m.Test(b.Source, b.SourceMask, b.Target, b.TargetMask)
		total += float64(loss)
	}
	return float32(total / float64(len(batches)))
}
