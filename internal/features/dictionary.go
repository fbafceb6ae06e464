package features

type entry struct {
	value    string
	weight   float64
	synonyms []string
	// patterns run against diacritic-folded text.
	patterns []string
}

var dictionary = map[Category][]entry{
	GarmentType: {
		{"gecelik", 2.0, []string{"geceliği", "geceliğin", "geceliğe", "gecelig", "nightgown"}, []string{`\bgecelik\w*\b`, `\bnightgown\b`}},
		{"pijama", 2.0, []string{"pijamayı", "pijamanın", "pijamaya", "pijamalar", "pajama", "pyjama"}, []string{`\bpijama\w*\b`, `\bpajama\b`, `\bpyjama\b`}},
		{"elbise", 2.0, []string{"elbiseyi", "elbisenin", "elbiseye", "elbiseler", "dress"}, []string{`\belbise\w*\b`, `\bdress\b`}},
		{"sabahlık", 2.0, []string{"sabahlığı", "sabahlığın", "sabahlığa", "sabahlıklar", "robe"}, []string{`\bsabahlik\w*\b`, `\brobe\b`}},
		{"takım", 1.8, []string{"takımı", "takımın", "takıma", "set"}, []string{`\btakim\w*\b`, `\bset\b`}},
	},
	TargetGroup: {
		{"hamile", 1.8, []string{"pregnant", "maternity", "anne adayı"}, []string{`\bhamile\b`, `\bpregnant\b`, `\bmaternity\b`}},
		{"lohusa", 1.8, []string{"emziren", "nursing"}, []string{`\blohusa\b`, `\bemziren\b`, `\bnursing\b`}},
		{"büyük beden", 1.5, []string{"plus size", "xxl"}, []string{`\bbuyuk\s+beden\b`, `\bplus\s+size\b`}},
	},
	Style: {
		{"dantelli", 1.5, []string{"dantel", "lace", "güpürlü"}, []string{`\bdantelli\b`, `\bdantel\b`, `\blace\b`}},
		{"düğmeli", 1.4, []string{"düğme", "button", "önü düğmeli"}, []string{`\bdugmeli\b`, `\bdugme\b`, `\bbutton\b`}},
		{"dekolteli", 1.3, []string{"dekolte", "v yaka", "açık yaka"}, []string{`\bdekolteli\b`, `\bdekolte\b`, `\bv\s+yaka\b`}},
		{"askılı", 1.2, []string{"askı", "strap", "ip askılı"}, []string{`\baskili\b`, `\bstrap\b`}},
	},
	Color: {
		{"siyah", 1.2, []string{"black", "kara"}, []string{`\bsiyah\w*\b`, `\bblack\b`}},
		{"beyaz", 1.2, []string{"white"}, []string{`\bbeyaz\w*\b`, `\bwhite\b`}},
		{"kırmızı", 1.2, []string{"red"}, []string{`\bkirmizi\w*\b`, `\bred\b`}},
		{"mavi", 1.2, []string{"blue"}, []string{`\bmavi\w*\b`, `\bblue\b`}},
		{"yeşil", 1.2, []string{"green"}, []string{`\byesil\w*\b`, `\bgreen\b`}},
		{"pembe", 1.2, []string{"pink", "roze"}, []string{`\bpembe\w*\b`, `\bpink\b`}},
		{"mor", 1.2, []string{"purple", "menekşe", "lila"}, []string{`\bmor\b`, `\bmoru\b`, `\bpurple\b`}},
		{"lacivert", 1.2, []string{"navy", "koyu mavi"}, []string{`\blacivert\w*\b`, `\bnavy\b`}},
		{"bordo", 1.2, []string{"burgundy", "koyu kırmızı"}, []string{`\bbordo\w*\b`, `\bburgundy\b`}},
		{"ekru", 1.2, []string{"cream", "krem"}, []string{`\bekru\w*\b`, `\bcream\b`, `\bkrem\b`}},
	},
	BodyPart: {
		{"kol", 1.1, []string{"sleeve", "kolu"}, []string{`\bkol\w*\b`, `\bsleeve\b`}},
		{"omuz", 1.1, []string{"shoulder", "omzu"}, []string{`\bomuz\w*\b`, `\bomzu\b`, `\bshoulder\b`}},
		{"yaka", 1.1, []string{"collar", "neck", "yakası"}, []string{`\byaka\w*\b`, `\bcollar\b`, `\bneck\b`}},
		{"göğüs", 1.0, []string{"chest", "breast", "göğsü"}, []string{`\bgogus\w*\b`, `\bgogsu\b`, `\bchest\b`}},
		{"sırt", 1.0, []string{"sırtı"}, []string{`\bsirt\w*\b`}},
	},
	Closure: {
		{"fermuarlı", 0.8, []string{"fermuar", "zipper"}, []string{`\bfermuar\w*\b`, `\bzipper\b`}},
		{"bağlamalı", 0.8, []string{"bağcıklı", "kuşaklı"}, []string{`\bbaglama\w*\b`, `\bkusakli\b`}},
		{"çıtçıtlı", 0.8, []string{"çıtçıt"}, []string{`\bcitcit\w*\b`}},
	},
	Material: {
		{"pamuk", 0.8, []string{"pamuklu", "cotton", "penye"}, []string{`\bpamuk\w*\b`, `\bcotton\b`}},
		{"saten", 0.8, []string{"satin"}, []string{`\bsaten\w*\b`, `\bsatin\b`}},
		{"ipek", 0.8, []string{"ipekli", "silk"}, []string{`\bipek\w*\b`, `\bsilk\b`}},
		{"viskon", 0.8, []string{"viscose"}, []string{`\bviskon\w*\b`}},
		{"kadife", 0.8, []string{"velvet"}, []string{`\bkadife\w*\b`}},
	},
	Pattern: {
		{"çizgili", 0.6, []string{"striped"}, []string{`\bcizgili\b`}},
		{"puantiyeli", 0.6, []string{"puantiye", "dotted"}, []string{`\bpuantiye\w*\b`}},
		{"desenli", 0.6, []string{"desen"}, []string{`\bdesen\w*\b`}},
		{"çiçekli", 0.6, []string{"floral"}, []string{`\bcicekli\b`}},
		{"baskılı", 0.6, []string{"baskı", "printed"}, []string{`\bbaskili\b`}},
		{"etnik", 0.6, []string{"ethnic"}, []string{`\betnik\b`}},
	},
	Size: {
		{"küçük beden", 0.6, []string{"small"}, []string{`\bkucuk\s+beden\b`}},
		{"standart beden", 0.6, []string{"tek beden", "standart"}, []string{`\bstandart\s+beden\b`, `\btek\s+beden\b`}},
	},
	Occasion: {
		{"günlük", 0.4, []string{"gundelik", "daily"}, []string{`\bgunluk\b`}},
		{"özel gün", 0.4, []string{"düğün", "nişan"}, []string{`\bozel\s+gun\w*\b`}},
		{"ev giyim", 0.4, []string{"evde"}, []string{`\bev\s+giyim\w*\b`}},
	},
	QueryType: {
		{"fiyat", 1.8, []string{"price", "kaç para", "ne kadar", "ücret", "tutar"}, []string{`\bfiyat\w*\b`, `\bprice\b`, `\bkac\s+para\b`, `\bne\s+kadar\b`}},
		{"stok", 1.8, []string{"stock", "var mı", "mevcut", "kaldı"}, []string{`\bstok\w*\b`, `\bstock\b`, `\bvar\s+mi\b`, `\bmevcut\b`}},
		{"renk", 1.6, []string{"color", "renkler", "hangi renk"}, []string{`\brenk\w*\b`, `\bcolor\b`}},
		{"beden", 1.6, []string{"size", "bedenleri", "hangi beden"}, []string{`\bbeden\w*\b`, `\bsize\b`}},
		{"detay", 1.4, []string{"detail", "bilgi", "özellik", "info"}, []string{`\bdetay\w*\b`, `\bdetail\b`, `\bbilgi\b`, `\bozellik\b`}},
	},
}
