package zone

// AccessLevel はゾーンの立ち入り区分を表す
type AccessLevel string

const (
	AccessPublic     AccessLevel = "public"     // 一般開放区域
	AccessMonitored  AccessLevel = "monitored"  // 監視対象区域
	AccessRestricted AccessLevel = "restricted" // 制限区域
	AccessCritical   AccessLevel = "critical"   // 重要区域
)

// Point は基準フレームのピクセル座標系における1点を表す
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Zone は基準フレーム上の名前付き多角形領域を表す。
// IDはカメラごとに単調増加で採番され、削除後も再利用されない。
type Zone struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	AccessLevel AccessLevel `json:"access_level"`
	Points      []Point     `json:"points"` // 順序付き頂点列（3点以上、閉多角形として解釈）
}

// ZoneSet はカメラ1台分のゾーン定義を表す。
// ReferenceWidth/Heightは多角形を描いた基準フレームのピクセル寸法で、
// 実フレームの解像度が異なる場合のスケーリングに必要となる。
type ZoneSet struct {
	ReferenceWidth  int          `json:"reference_width"`
	ReferenceHeight int          `json:"reference_height"`
	Zones           map[int]Zone `json:"zones"`
}

// EmptyZoneSet は空のゾーンセットを返す
func EmptyZoneSet() ZoneSet {
	return ZoneSet{Zones: make(map[int]Zone)}
}

// Clone はゾーンセットの深いコピーを返す
func (zs ZoneSet) Clone() ZoneSet {
	cloned := ZoneSet{
		ReferenceWidth:  zs.ReferenceWidth,
		ReferenceHeight: zs.ReferenceHeight,
		Zones:           make(map[int]Zone, len(zs.Zones)),
	}
	for id, z := range zs.Zones {
		points := make([]Point, len(z.Points))
		copy(points, z.Points)
		z.Points = points
		cloned.Zones[id] = z
	}
	return cloned
}

// ScaleFrom は実フレームの座標を基準フレームの座標系に変換する。
// 侵入判定を行う側は、解像度の異なるフレーム上の点をこの契約で
// 基準座標系に揃えてからContainsを評価する。
func (zs ZoneSet) ScaleFrom(x, y float64, frameWidth, frameHeight int) Point {
	if frameWidth <= 0 || frameHeight <= 0 || zs.ReferenceWidth <= 0 || zs.ReferenceHeight <= 0 {
		return Point{X: x, Y: y}
	}
	return Point{
		X: x * float64(zs.ReferenceWidth) / float64(frameWidth),
		Y: y * float64(zs.ReferenceHeight) / float64(frameHeight),
	}
}

// Contains は点が多角形の内部にあるかどうかを判定する。
// 多角形は閉じているものとして扱い、末尾から先頭への辺も評価する。
func (z Zone) Contains(p Point) bool {
	if len(z.Points) < 3 {
		return false
	}

	inside := false
	n := len(z.Points)
	j := n - 1
	for i := 0; i < n; i++ {
		pi, pj := z.Points[i], z.Points[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) {
			crossX := (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if p.X < crossX {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
