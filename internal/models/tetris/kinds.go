package tetris

import (
	"math/rand"
	"time"
)

// KindSource は次に生成するテトリミノの種類を決める乱数源です。
// テストでは SequenceKinds を渡して出現順を固定します。
type KindSource interface {
	NextKind() PieceKind
}

// UniformKinds は7種類から一様に選ぶ乱数源です。
type UniformKinds struct {
	r *rand.Rand
}

// NewUniformKinds は指定されたシードで一様乱数源を作成します。
func NewUniformKinds(seed int64) *UniformKinds {
	return &UniformKinds{r: rand.New(rand.NewSource(seed))}
}

// NextKind は次の種類を返します。
func (u *UniformKinds) NextKind() PieceKind {
	return AllKinds[u.r.Intn(NumKinds)]
}

// BagKinds は7-bag方式の乱数源です。
// 7種類を1袋としてシャッフルし、袋が空になるたびに補充します。
// 袋の境目で同じ種類が連続しないよう、新しい袋の先頭を入れ替えます。
type BagKinds struct {
	r     *rand.Rand
	queue []PieceKind
}

// NewBagKinds は指定されたシードで7-bag乱数源を作成します。
func NewBagKinds(seed int64) *BagKinds {
	return &BagKinds{r: rand.New(rand.NewSource(seed))}
}

// refill は新しい袋をキューの末尾に追加します。
func (b *BagKinds) refill() {
	bag := AllKinds

	var last PieceKind
	hasLast := len(b.queue) > 0
	if hasLast {
		last = b.queue[len(b.queue)-1]
	}

	b.r.Shuffle(len(bag), func(i, j int) {
		bag[i], bag[j] = bag[j], bag[i]
	})

	// 連続防止
	if hasLast && bag[0] == last {
		swap := b.r.Intn(len(bag)-1) + 1
		bag[0], bag[swap] = bag[swap], bag[0]
	}

	b.queue = append(b.queue, bag[:]...)
}

// NextKind はキューの先頭を取り出します。残りが1個になったら次の袋を補充します。
func (b *BagKinds) NextKind() PieceKind {
	if len(b.queue) < 2 {
		b.refill()
	}
	k := b.queue[0]
	b.queue = b.queue[1:]
	return k
}

// SequenceKinds は与えられた順序を繰り返し返す乱数源です。
type SequenceKinds struct {
	kinds []PieceKind
	pos   int
}

// NewSequenceKinds は固定順序の乱数源を作成します。空の場合は I のみを返します。
func NewSequenceKinds(kinds ...PieceKind) *SequenceKinds {
	if len(kinds) == 0 {
		kinds = []PieceKind{KindI}
	}
	return &SequenceKinds{kinds: kinds}
}

// NextKind は順序に従って次の種類を返します。
func (s *SequenceKinds) NextKind() PieceKind {
	k := s.kinds[s.pos%len(s.kinds)]
	s.pos++
	return k
}

// NewKindSource は名前から乱数源を作成します。"bag" 以外は一様乱数になります。
func NewKindSource(name string) KindSource {
	seed := time.Now().UnixNano()
	if name == "bag" {
		return NewBagKinds(seed)
	}
	return NewUniformKinds(seed)
}
